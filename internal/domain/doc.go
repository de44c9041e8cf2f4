// Package domain defines the entities, failure taxonomy and interfaces
// shared across the timecapsule services.
//
// Contents
//
//   - Letter and ShareToken records with their status lifecycles
//   - Envelope, the password-wrapped client share plus KDF parameters
//   - Sentinel failure values matched with errors.Is, never by message
//   - Store and client interfaces implemented in internal/store and
//     internal/vault
//
// # Notes
//
// The domain package has no dependencies beyond the standard library so
// that every other package can import it freely.
package domain

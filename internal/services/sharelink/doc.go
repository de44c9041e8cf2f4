// Package sharelink implements the access-link state machine.
//
// Each letter has at most one active token at any instant. Create and
// Rotate demote the previous active token to rotated (recording its
// successor) and activate the new one as a single atomic operation;
// Revoke is terminal and idempotent. Resolve classifies revoked,
// rotated and unknown tokens distinctly. View counts and access times
// are telemetry only.
package sharelink

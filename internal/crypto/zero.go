package crypto

// Zero best-effort wipes b. Reduces, not eliminates, key lifetime in
// memory; the GC may have copied the slice already.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

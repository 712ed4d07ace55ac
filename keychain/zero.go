package keychain

// zeroBytes overwrites the buffer with zeros. It is used on every scratch
// copy of seed or private key material this package creates, immediately
// before the buffer goes out of scope. Callers' own buffers are never
// touched.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

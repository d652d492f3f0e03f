package common

// WipeBytes zeroes b in place. Use it on passwords once they have been sent.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

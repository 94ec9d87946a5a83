/*
Package slice contains byte slice helpers.
*/
package slice

// Copy copies the given byte slice into a new one. A nil slice is copied
// into an empty non-nil one.
func Copy(b []byte) []byte {
	d := make([]byte, len(b))
	copy(d, b)
	return d
}

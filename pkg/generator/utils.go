package generator

import "strconv"

// currentOffset renders the symbolic byte offset of the next field: the
// fixed bit count rounded down to bytes, plus every variable-length
// contribution accumulated so far.
func currentOffset(bitOffset int, offsetFns []string) string {
	offset := strconv.Itoa(bitOffset / 8)
	for _, fn := range offsetFns {
		offset = offset + " + " + fn
	}
	return offset
}

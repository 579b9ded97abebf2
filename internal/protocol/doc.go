// Package protocol owns the lane command wire contract.
//
// Ownership boundary:
// - frame primitives (sync, length marker, padding, checksum) in frame/
// - board -> payload encoding
// - frame -> command decoding for loopback and diagnostics
//
// Wire layout (15 bytes):
//
//	0     sync 0xAA
//	1     length marker 12
//	2     lane value 1..3
//	3-6   object code per row of the lane
//	7-10  navigation code per row
//	11-13 zero padding
//	14    (0xAA + 12 + sum(bytes 2..13)) & 0xFF
package protocol

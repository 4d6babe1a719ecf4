package persistence

import (
	"hash/crc32"
)

// CRC32 (IEEE polynomial) is used for artifact integrity:
// fast, hardware-accelerated, and good at detecting storage corruption.
// It is not cryptographically secure and detects accidents, not tampering.

var crcTable = crc32.MakeTable(crc32.IEEE)

// Checksum computes the CRC32 checksum of data.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// VerifyChecksum checks data against an expected checksum value.
func VerifyChecksum(data []byte, expected uint32) error {
	actual := Checksum(data)
	if actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

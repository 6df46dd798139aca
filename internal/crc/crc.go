// Package crc adapts the CRC-32 primitive DBF treats as an external,
// pluggable collaborator into the single function the serializer and
// unserializer call. The polynomial and byte order are whatever the
// standard library's IEEE table implements; the codec itself is agnostic to
// the choice as long as both ends of a connection use the same one.
package crc

import "hash/crc32"

// Checksum returns the CRC-32 (IEEE polynomial) of data, matching the shape
// of github.com/mewkiz/pkg/hashutil/crc16's ChecksumIBM: one pure function,
// no state to manage.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

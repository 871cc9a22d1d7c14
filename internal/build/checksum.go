package build

import (
	"hash/crc32"
	"strconv"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Checksum returns the CRC32 Castagnoli hash of a document as lower-case hex.
// It is meant for change detection, not integrity.
func Checksum(doc string) string {
	return strconv.FormatUint(uint64(crc32.Checksum([]byte(doc), castagnoli)), 16)
}

package index

import (
	"encoding/binary"

	"github.com/twmb/murmur3"

	"bovw/internal/vector"
)

// Fingerprint hashes a codebook's shape and contents. Index blobs are stamped
// with it so a stale index is never paired with a different codebook.
func Fingerprint(codebook vector.Matrix) uint64 {
	h := murmur3.New64()
	_ = binary.Write(h, binary.LittleEndian, [2]int32{int32(codebook.Rows), int32(codebook.Cols)})
	_ = binary.Write(h, binary.LittleEndian, codebook.Data[:codebook.Rows*codebook.Cols])
	return h.Sum64()
}

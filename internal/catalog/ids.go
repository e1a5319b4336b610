package catalog

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// ProductID derives the stable 63-bit identifier for a product from its
// canonical title: the SHA-256 digest interpreted as a big-endian integer,
// reduced mod 2^63. Re-ingesting the same title always yields the same id,
// which is what makes the relational upsert idempotent.
func ProductID(title string) uint64 {
	return hash63([]byte(title))
}

// VectorID derives the stable 63-bit identifier for one persisted vector from
// the canonical title, the embedding kind, and the image ordinal. The text
// embedding uses index 0; image embeddings use their position in the record's
// image list.
func VectorID(title, kind string, index int) uint64 {
	return hash63(fmt.Appendf(nil, "%s_%s_%d", title, kind, index))
}

// hash63 keeps the low 63 bits of the SHA-256 digest, i.e. the digest as a
// big integer mod 2^63. The result always fits a signed BIGINT column.
func hash63(content []byte) uint64 {
	sum := sha256.Sum256(content)
	return binary.BigEndian.Uint64(sum[24:]) & math.MaxInt64
}

// Package vector holds the embedding math shared by storage and retrieval:
// cosine similarity and the little-endian float32 blob codec.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors of different lengths are compared.
var ErrDimensionMismatch = errors.New("vector: dimension mismatch")

// Cosine returns the cosine similarity of a and b.
//
// The boolean is false when either vector has zero magnitude (or is empty); the
// similarity is undefined in that case and callers should skip the pair rather than
// treat it as zero. Vectors of different lengths return ErrDimensionMismatch.
func Cosine(a, b []float32) (float64, bool, error) {
	if len(a) != len(b) {
		return 0, false, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, false, nil
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, false, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true, nil
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

// Encode packs an embedding into 4 bytes per component (IEEE 754, little endian).
func Encode(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}
	data := make([]byte, len(embedding)*4)
	for i, f := range embedding {
		bits := math.Float32bits(f)
		data[i*4] = byte(bits)
		data[i*4+1] = byte(bits >> 8)
		data[i*4+2] = byte(bits >> 16)
		data[i*4+3] = byte(bits >> 24)
	}
	return data
}

// Decode is the inverse of Encode. Blobs whose length is not a multiple of 4
// are rejected.
func Decode(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector: blob length %d is not a multiple of 4", len(data))
	}
	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		bits := uint32(data[i*4]) |
			uint32(data[i*4+1])<<8 |
			uint32(data[i*4+2])<<16 |
			uint32(data[i*4+3])<<24
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding, nil
}

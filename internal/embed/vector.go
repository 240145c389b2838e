package embed

import (
	"encoding/binary"
	"math"

	pkgerrors "github.com/fluorite-labs/docpack/internal/errors"
)

// EncodeVector packs a float32 vector into row-major little-endian bytes,
// 4 bytes per component. This is the on-disk embedding layout.
func EncodeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector unpacks bytes produced by EncodeVector.
func DecodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, pkgerrors.Newf(pkgerrors.ErrCodeEmbedDimension,
			"vector buffer length %d is not a multiple of 4", len(buf))
	}
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector, nil
}

// EncodeAll packs a set of vectors, validating each against the expected
// dimension when dim is positive.
func EncodeAll(vectors [][]float32, dim int) ([][]byte, error) {
	buffers := make([][]byte, len(vectors))
	for i, v := range vectors {
		if dim > 0 && len(v) != dim {
			return nil, pkgerrors.Newf(pkgerrors.ErrCodeEmbedDimension,
				"vector %d has %d dimensions, expected %d", i, len(v), dim)
		}
		buffers[i] = EncodeVector(v)
	}
	return buffers, nil
}

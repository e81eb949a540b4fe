package network

import (
	"github.com/klauspost/compress/zstd"
)

// chunkCompressor wraps a zstd encoder/decoder pair for the cached
// full-grid CHUNK_VOXELS_HARD_UPDATE payload, grounded on
// kcp_channel.go's compressor/decompressor fields. A full grid snapshot
// is G^3 chunks of 4096 bytes of density each, JSON-marshaled for
// storage in the Hot Cache (chunk_cache.go) — large enough that most of
// it (mostly-air or mostly-solid runs) compresses well before hitting
// Redis.
type chunkCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newChunkCompressor() (*chunkCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &chunkCompressor{enc: enc, dec: dec}, nil
}

// Compress zstd-compresses the marshaled hard-update entries.
func (c *chunkCompressor) Compress(data []byte) []byte {
	return c.enc.EncodeAll(data, make([]byte, 0, len(data)))
}

// Decompress reverses Compress.
func (c *chunkCompressor) Decompress(data []byte) ([]byte, error) {
	return c.dec.DecodeAll(data, nil)
}

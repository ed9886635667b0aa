// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"google.golang.org/grpc/encoding"
)

// Compressor names as they appear in configuration and in the
// grpc-encoding header.
const (
	// None sends messages uncompressed.
	None = "none"

	// Zstd is zstd at the default speed level. Good ratios for text
	// inputs and logs.
	Zstd = "zstd"

	// LZ4 is LZ4 frame compression. Cheap on CPU, the better choice for
	// already-dense binary inputs.
	LZ4 = "lz4"
)

func init() {
	encoding.RegisterCompressor(zstdCompressor{})
	encoding.RegisterCompressor(lz4Compressor{})
}

// Validate reports whether name is a compressor this package knows
// about. The empty string is treated as None.
func Validate(name string) error {
	switch name {
	case "", None, Zstd, LZ4:
		return nil
	default:
		return fmt.Errorf("unknown compression %q (want %s, %s, or %s)", name, None, Zstd, LZ4)
	}
}

// Enabled reports whether name selects an actual compressor.
func Enabled(name string) bool {
	return name != "" && name != None
}

// zstdCompressor implements encoding.Compressor with klauspost zstd.
type zstdCompressor struct{}

func (zstdCompressor) Name() string { return Zstd }

func (zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return encoder, nil
}

func (zstdCompressor) Decompress(r io.Reader) (io.Reader, error) {
	decoder, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &zstdReader{decoder: decoder}, nil
}

// zstdReader releases the decoder once the message has been read to
// the end. gRPC reads every message to EOF and then drops the reader.
type zstdReader struct {
	decoder *zstd.Decoder
	closed  bool
}

func (r *zstdReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, io.EOF
	}
	n, err := r.decoder.Read(p)
	if err != nil {
		r.decoder.Close()
		r.closed = true
	}
	return n, err
}

// lz4Compressor implements encoding.Compressor with pierrec/lz4
// frame-mode streams.
type lz4Compressor struct{}

func (lz4Compressor) Name() string { return LZ4 }

func (lz4Compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lz4Compressor) Decompress(r io.Reader) (io.Reader, error) {
	return lz4.NewReader(r), nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vmservice

import (
	"errors"
	"fmt"
)

// Error codes carried in ErrorFrame.
const (
	// ErrorCodeRead means the sender failed to read the source file
	// and abandoned the transfer.
	ErrorCodeRead int32 = 1
)

// ErrMalformedFrame is returned by [FileData.Frame] when the wire frame
// has no variant set or more than one.
var ErrMalformedFrame = errors.New("malformed transfer frame")

// Frame is a transfer frame: one of [MetadataFrame], [ChunkFrame], or
// [ErrorFrame]. The interface is sealed; no other types implement it.
type Frame interface {
	isFrame()
}

// MetadataFrame identifies the transfer. Sent once, first, on uploads.
type MetadataFrame struct {
	TaskID string
	Path   string
}

// ChunkFrame carries the next run of file bytes.
type ChunkFrame struct {
	Data []byte
}

// ErrorFrame signals that the sender aborted mid-stream.
type ErrorFrame struct {
	Code int32
}

func (MetadataFrame) isFrame() {}
func (ChunkFrame) isFrame()    {}
func (ErrorFrame) isFrame()    {}

// Frame converts the wire frame to its variant.
func (d *FileData) Frame() (Frame, error) {
	set := 0
	var frame Frame
	if d.Metadata != nil {
		set++
		frame = MetadataFrame{TaskID: d.Metadata.TaskID, Path: d.Metadata.Path}
	}
	if d.Chunk != nil {
		set++
		frame = ChunkFrame{Data: d.Chunk.Data}
	}
	if d.Error != nil {
		set++
		frame = ErrorFrame{Code: *d.Error}
	}

	if set != 1 {
		return nil, fmt.Errorf("%w: %d variants set", ErrMalformedFrame, set)
	}
	return frame, nil
}

// NewFileData converts a frame variant to its wire form.
func NewFileData(frame Frame) *FileData {
	switch frame := frame.(type) {
	case MetadataFrame:
		return &FileData{Metadata: &FileMetadata{TaskID: frame.TaskID, Path: frame.Path}}
	case ChunkFrame:
		return &FileData{Chunk: &FileChunk{Data: frame.Data}}
	case ErrorFrame:
		code := frame.Code
		return &FileData{Error: &code}
	default:
		panic(fmt.Sprintf("vmservice: unknown frame type %T", frame))
	}
}

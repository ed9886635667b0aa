// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vmservice

// TaskRequest asks the host for the next unit of work.
type TaskRequest struct{}

// TaskResponse answers GetTask. At most one of Task and Error is set;
// neither means no work is available right now.
type TaskResponse struct {
	Task  *Task  `cbor:"task,omitempty"`
	Error *int32 `cbor:"error,omitempty"`
}

// Task is one unit of work as the host describes it. Files are names
// the host resolves in GetFile.
type Task struct {
	ID    string   `cbor:"id"`
	Args  []string `cbor:"args"`
	Files []string `cbor:"files"`
}

// GetFileRequest names one input file of a task.
type GetFileRequest struct {
	TaskID string `cbor:"task_id"`
	Path   string `cbor:"path"`
}

// FileData is one transfer frame on the wire. Exactly one field is set.
type FileData struct {
	Metadata *FileMetadata `cbor:"metadata,omitempty"`
	Chunk    *FileChunk    `cbor:"chunk,omitempty"`
	Error    *int32        `cbor:"error,omitempty"`
}

// FileMetadata identifies the file a transfer is about.
type FileMetadata struct {
	TaskID string `cbor:"task_id"`
	Path   string `cbor:"path"`
}

// FileChunk carries raw file bytes.
type FileChunk struct {
	Data []byte `cbor:"data"`
}

// SubmitFileResponse acknowledges a completed upload.
type SubmitFileResponse struct{}

// TaskResultRequest submits the outcome of a task.
type TaskResultRequest struct {
	Task *TaskResult `cbor:"task,omitempty"`
}

// TaskResult is the wire form of a finished task: the opaque payload
// produced by the executor and the manifest of uploaded files.
type TaskResult struct {
	ID    string `cbor:"id"`
	Data  []byte `cbor:"data"`
	Files []File `cbor:"files"`
}

// File is one manifest entry: the uploaded path and the BLAKE3 digest
// of the bytes sent for it.
type File struct {
	Path     string `cbor:"path"`
	Checksum []byte `cbor:"checksum"`
}

// TaskResultResponse carries the continuation flag: true when the host
// has more work and the agent should keep polling.
type TaskResultResponse struct {
	Continue bool `cbor:"continue"`
}

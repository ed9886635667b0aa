// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/vmshim/lib/checksum"
)

// Task is one unit of work. Files holds the host's names for the
// task's inputs until [Client.StageTask] succeeds, and the local paths
// of the downloaded copies afterwards.
type Task struct {
	ID    string
	Args  []string
	Files []string
}

// TaskResult is what an [Executor] produces: an opaque payload for the
// host and the paths of output files to upload.
type TaskResult struct {
	ID    string
	Data  []byte
	Files []string
}

// FileManifestEntry records one uploaded file: the path as submitted
// and the BLAKE3 digest of the bytes streamed for it.
type FileManifestEntry struct {
	Path     string
	Checksum checksum.Hash
}

// InputPath pairs a task input's host name with its local destination.
type InputPath struct {
	Name  string
	Local string
}

// Result builds the task's result. The result carries the task's ID.
func (t *Task) Result(data []byte, files []string) *TaskResult {
	return &TaskResult{ID: t.ID, Data: data, Files: files}
}

// Dir returns the task's private directory under workspace.
func (t *Task) Dir(workspace string) string {
	return filepath.Join(workspace, t.ID)
}

// InputPaths maps each entry of Files to its destination under the
// task directory. Task IDs must be a single path element and file
// names must be local relative paths; anything that would resolve
// outside the task directory fails with [ErrInvalidPath].
func (t *Task) InputPaths(workspace string) ([]InputPath, error) {
	if err := validateTaskID(t.ID); err != nil {
		return nil, err
	}

	dir := t.Dir(workspace)
	paths := make([]InputPath, 0, len(t.Files))
	for _, name := range t.Files {
		if !filepath.IsLocal(name) {
			return nil, fmt.Errorf("%w: task %s input %q", ErrInvalidPath, t.ID, name)
		}
		paths = append(paths, InputPath{Name: name, Local: filepath.Join(dir, name)})
	}
	return paths, nil
}

func validateTaskID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsRune(id, filepath.Separator) || !filepath.IsLocal(id) {
		return fmt.Errorf("%w: task id %q", ErrInvalidPath, id)
	}
	return nil
}

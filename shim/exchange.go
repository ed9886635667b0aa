// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"context"
	"fmt"
)

// StageTask downloads every input of task into its directory under
// workspace, one file at a time, and replaces each entry of task.Files
// with the local path once that file is complete. The first failure
// stops staging and is returned; the task must not be executed then.
// Names are validated before any download starts.
func (c *Client) StageTask(ctx context.Context, workspace string, task *Task) error {
	inputs, err := task.InputPaths(workspace)
	if err != nil {
		return err
	}

	var total int64
	for i, input := range inputs {
		stats, err := c.GetFile(ctx, task.ID, input.Name, input.Local)
		if err != nil {
			return fmt.Errorf("staging task %s: %w", task.ID, err)
		}
		total += stats.Bytes
		task.Files[i] = input.Local
	}

	c.logger.Info("task staged", "task_id", task.ID, "files", len(inputs), "bytes", total)
	return nil
}

// Submit uploads the result's files in order, then submits the result
// with the manifest of their digests, and returns the host's
// continuation flag. A failed upload stops the submission before
// SubmitResult is called.
func (c *Client) Submit(ctx context.Context, result *TaskResult) (bool, error) {
	manifest := make([]FileManifestEntry, 0, len(result.Files))
	for _, path := range result.Files {
		entry, _, err := c.SubmitFile(ctx, result.ID, path)
		if err != nil {
			return false, fmt.Errorf("submitting task %s: %w", result.ID, err)
		}
		manifest = append(manifest, entry)
	}

	proceed, err := c.SubmitResult(ctx, result, manifest)
	if err != nil {
		return false, err
	}
	c.logger.Info("task result submitted", "task_id", result.ID, "files", len(manifest), "continue", proceed)
	return proceed, nil
}

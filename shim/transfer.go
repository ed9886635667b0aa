// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/vmshim/lib/checksum"
	"github.com/bureau-foundation/vmshim/lib/vmservice"
)

// TransferStats counts what one file transfer moved.
type TransferStats struct {
	Bytes  int64
	Chunks int
}

// download streams the host's copy of name into destination. Metadata
// frames are skipped and chunks are appended in arrival order. On a
// clean end of stream the file is flushed and synced. On an error frame
// the bytes received so far stay in the file and a [*TransferError] is
// returned.
func download(ctx context.Context, service vmservice.VMServiceClient, logger *slog.Logger, taskID, name, destination string) (stats TransferStats, err error) {
	logger = logger.With("task_id", taskID, "path", name)
	logger.Info("download start", "destination", destination)
	defer func() {
		if err != nil {
			logger.Error("download failed", "bytes", stats.Bytes, "error", err)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return stats, fmt.Errorf("creating directory for %s: %w", destination, err)
	}
	file, err := os.Create(destination)
	if err != nil {
		return stats, fmt.Errorf("creating %s: %w", destination, err)
	}
	writer := bufio.NewWriter(file)

	// finish flushes whatever was received and closes the file. It runs
	// on every exit path so partial content is never lost in the buffer.
	finish := func(sync bool) error {
		flushErr := writer.Flush()
		var syncErr error
		if sync && flushErr == nil {
			syncErr = file.Sync()
		}
		closeErr := file.Close()
		if err := errors.Join(flushErr, syncErr, closeErr); err != nil {
			return fmt.Errorf("writing %s: %w", destination, err)
		}
		return nil
	}

	// Leaving early cancels the stream so the host stops sending.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := service.GetFile(ctx, &vmservice.GetFileRequest{TaskID: taskID, Path: name})
	if err != nil {
		return stats, errors.Join(fmt.Errorf("GetFile %s: %w", name, err), finish(false))
	}

	for {
		data, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, errors.Join(fmt.Errorf("receiving %s: %w", name, err), finish(false))
		}

		frame, err := data.Frame()
		if err != nil {
			return stats, errors.Join(fmt.Errorf("%w: receiving %s: %w", ErrStreamBroken, name, err), finish(false))
		}

		switch frame := frame.(type) {
		case vmservice.MetadataFrame:
			// The request already names the file.
		case vmservice.ChunkFrame:
			if _, err := writer.Write(frame.Data); err != nil {
				return stats, errors.Join(fmt.Errorf("writing %s: %w", destination, err), finish(false))
			}
			stats.Bytes += int64(len(frame.Data))
			stats.Chunks++
		case vmservice.ErrorFrame:
			transferErr := &TransferError{TaskID: taskID, Path: name, Code: frame.Code, Received: stats.Bytes}
			if err := finish(false); err != nil {
				return stats, errors.Join(transferErr, err)
			}
			return stats, transferErr
		}
	}

	if err := finish(true); err != nil {
		return stats, err
	}
	logger.Info("download complete", "bytes", stats.Bytes, "chunks", stats.Chunks)
	return stats, nil
}

// upload streams the file at path to the host: one metadata frame, then
// the content in chunkSize pieces, hashing each chunk as it is sent. An
// empty file sends only the metadata frame. If the file cannot be
// opened or read, a single error frame tells the host to discard the
// transfer and the read error is returned.
func upload(ctx context.Context, service vmservice.VMServiceClient, logger *slog.Logger, chunkSize int, taskID, path string) (digest checksum.Hash, stats TransferStats, err error) {
	logger = logger.With("task_id", taskID, "path", path)
	logger.Info("upload start")
	defer func() {
		if err != nil {
			logger.Error("upload failed", "bytes", stats.Bytes, "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := service.SubmitFile(ctx)
	if err != nil {
		return digest, stats, fmt.Errorf("SubmitFile %s: %w", path, err)
	}
	// send reports the host's status when the host ended the stream
	// early: Send then returns io.EOF and only CloseAndRecv knows why.
	send := func(frame vmservice.Frame) error {
		err := stream.Send(vmservice.NewFileData(frame))
		if errors.Is(err, io.EOF) {
			if _, err = stream.CloseAndRecv(); err == nil {
				return fmt.Errorf("sending %s: host closed the stream before the upload finished", path)
			}
		}
		if err != nil {
			return fmt.Errorf("sending %s: %w", path, err)
		}
		return nil
	}
	abort := func(readErr error) error {
		sendErr := send(vmservice.ErrorFrame{Code: vmservice.ErrorCodeRead})
		if sendErr == nil {
			// The host is expected to reject the stream; its answer
			// adds nothing to the read error.
			stream.CloseAndRecv()
		}
		return errors.Join(readErr, sendErr)
	}

	if err := send(vmservice.MetadataFrame{TaskID: taskID, Path: path}); err != nil {
		return digest, stats, err
	}

	file, err := os.Open(path)
	if err != nil {
		return digest, stats, abort(fmt.Errorf("opening %s: %w", path, err))
	}
	defer file.Close()

	hasher := checksum.New()
	buffer := make([]byte, chunkSize)
	for {
		n, readErr := io.ReadFull(file, buffer)
		if n > 0 {
			chunk := buffer[:n]
			hasher.Write(chunk)
			if err := send(vmservice.ChunkFrame{Data: chunk}); err != nil {
				return digest, stats, err
			}
			stats.Bytes += int64(n)
			stats.Chunks++
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return digest, stats, abort(fmt.Errorf("reading %s: %w", path, readErr))
		}
	}

	if _, err := stream.CloseAndRecv(); err != nil {
		return digest, stats, fmt.Errorf("finishing upload of %s: %w", path, err)
	}

	digest = hasher.Sum()
	logger.Info("upload complete", "bytes", stats.Bytes, "chunks", stats.Chunks, "checksum", digest.String())
	return digest, stats, nil
}

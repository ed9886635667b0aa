// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/bureau-foundation/vmshim/lib/vmservice"
	"github.com/bureau-foundation/vmshim/transport"
)

// fakeHost is an in-process VM service. Tasks are handed out in order;
// once the queue is empty GetTask reports no work. Files maps
// "<task id>/<name>" to the frames GetFile streams for it.
type fakeHost struct {
	vmservice.UnimplementedVMServiceServer

	mu         sync.Mutex
	tasks      []*vmservice.TaskResponse
	files      map[string][]*vmservice.FileData
	continues  []bool
	uploads    [][]vmservice.Frame
	results    []*vmservice.TaskResult
	getTasks   int
	getFiles   int
	rejectFile bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	callDelay   time.Duration
}

func newFakeHost() *fakeHost {
	return &fakeHost{files: make(map[string][]*vmservice.FileData)}
}

// enter records one more RPC in flight and returns the matching exit.
func (h *fakeHost) enter() func() {
	current := h.inFlight.Add(1)
	for {
		previous := h.maxInFlight.Load()
		if current <= previous || h.maxInFlight.CompareAndSwap(previous, current) {
			break
		}
	}
	if h.callDelay > 0 {
		time.Sleep(h.callDelay) //nolint:realclock widens the window for overlapping calls
	}
	return func() { h.inFlight.Add(-1) }
}

func (h *fakeHost) queueTask(id string, args []string, files ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks = append(h.tasks, &vmservice.TaskResponse{Task: &vmservice.Task{ID: id, Args: args, Files: files}})
}

func (h *fakeHost) queueNoTask() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks = append(h.tasks, &vmservice.TaskResponse{})
}

func (h *fakeHost) queueErrorCode(code int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks = append(h.tasks, &vmservice.TaskResponse{Error: &code})
}

// serveFile splits content into chunks of at most chunkSize, preceded
// by a metadata frame.
func (h *fakeHost) serveFile(taskID, name string, content []byte, chunkSize int) {
	frames := []*vmservice.FileData{vmservice.NewFileData(vmservice.MetadataFrame{TaskID: taskID, Path: name})}
	for offset := 0; offset < len(content); offset += chunkSize {
		end := min(offset+chunkSize, len(content))
		frames = append(frames, vmservice.NewFileData(vmservice.ChunkFrame{Data: content[offset:end]}))
	}
	h.serveFrames(taskID, name, frames...)
}

func (h *fakeHost) serveFrames(taskID, name string, frames ...*vmservice.FileData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[taskID+"/"+name] = frames
}

func (h *fakeHost) GetTask(context.Context, *vmservice.TaskRequest) (*vmservice.TaskResponse, error) {
	defer h.enter()()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.getTasks++
	if len(h.tasks) == 0 {
		return &vmservice.TaskResponse{}, nil
	}
	response := h.tasks[0]
	h.tasks = h.tasks[1:]
	return response, nil
}

func (h *fakeHost) GetFile(request *vmservice.GetFileRequest, stream grpc.ServerStreamingServer[vmservice.FileData]) error {
	defer h.enter()()
	h.mu.Lock()
	h.getFiles++
	frames, ok := h.files[request.TaskID+"/"+request.Path]
	h.mu.Unlock()
	if !ok {
		return status.Errorf(codes.NotFound, "no file %s for task %s", request.Path, request.TaskID)
	}
	for _, frame := range frames {
		if err := stream.Send(frame); err != nil {
			return err
		}
	}
	return nil
}

func (h *fakeHost) SubmitFile(stream grpc.ClientStreamingServer[vmservice.FileData, vmservice.SubmitFileResponse]) error {
	defer h.enter()()
	var frames []vmservice.Frame
	defer func() {
		h.mu.Lock()
		h.uploads = append(h.uploads, frames)
		h.mu.Unlock()
	}()

	for {
		data, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		frame, err := data.Frame()
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		if chunk, ok := frame.(vmservice.ChunkFrame); ok {
			// The transport may reuse the decode buffer.
			frame = vmservice.ChunkFrame{Data: append([]byte(nil), chunk.Data...)}
		}
		frames = append(frames, frame)
		if errorFrame, ok := frame.(vmservice.ErrorFrame); ok {
			return status.Errorf(codes.Aborted, "sender aborted with code %d", errorFrame.Code)
		}
	}

	h.mu.Lock()
	reject := h.rejectFile
	h.mu.Unlock()
	if reject {
		return status.Error(codes.ResourceExhausted, "upload rejected")
	}
	return stream.SendAndClose(&vmservice.SubmitFileResponse{})
}

func (h *fakeHost) SubmitResult(_ context.Context, request *vmservice.TaskResultRequest) (*vmservice.TaskResultResponse, error) {
	defer h.enter()()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, request.Task)
	proceed := false
	if len(h.continues) > 0 {
		proceed = h.continues[0]
		h.continues = h.continues[1:]
	}
	return &vmservice.TaskResultResponse{Continue: proceed}, nil
}

// snapshot returns copies of the recorded uploads and results.
func (h *fakeHost) snapshot() (uploads [][]vmservice.Frame, results []*vmservice.TaskResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]vmservice.Frame(nil), h.uploads...), append([]*vmservice.TaskResult(nil), h.results...)
}

func (h *fakeHost) counts() (getTasks, getFiles int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.getTasks, h.getFiles
}

// bufconnDialer routes the client channel to an in-memory listener.
type bufconnDialer struct {
	listener *bufconn.Listener
}

func (d bufconnDialer) DialContext(ctx context.Context, _ string) (net.Conn, error) {
	return d.listener.DialContext(ctx)
}

// failingDialer refuses every connection.
type failingDialer struct{}

func (failingDialer) DialContext(context.Context, string) (net.Conn, error) {
	return nil, errors.New("connection refused")
}

// startFakeHost serves host on an in-memory listener and returns a
// dialer that reaches it.
func startFakeHost(t *testing.T, host vmservice.VMServiceServer) transport.Dialer {
	t.Helper()
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	vmservice.RegisterVMServiceServer(server, host)
	go server.Serve(listener)
	t.Cleanup(server.Stop)
	return bufconnDialer{listener: listener}
}

// testEndpoint is the address the tests configure. The bufconn dialer
// ignores it, as the vsock dialer ignores the gRPC target.
var testEndpoint = transport.Endpoint{Network: transport.NetworkVsock, Address: "2:8080"}

// connectFakeHost dials a client to host with the given chunk size.
func connectFakeHost(t *testing.T, host *fakeHost, chunkSize int) *Client {
	t.Helper()
	client, err := Dial(testContext(t), DialOptions{
		Endpoint:       testEndpoint,
		Dialer:         startFakeHost(t, host),
		ConnectTimeout: 5 * time.Second,
		ChunkSize:      chunkSize,
		Logger:         discardLogger(),
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

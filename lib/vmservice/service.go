// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vmservice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "vm_service.VmService"

// Full method names.
const (
	GetTaskMethod      = "/" + ServiceName + "/GetTask"
	GetFileMethod      = "/" + ServiceName + "/GetFile"
	SubmitFileMethod   = "/" + ServiceName + "/SubmitFile"
	SubmitResultMethod = "/" + ServiceName + "/SubmitResult"
)

// VMServiceClient is the guest side of the VM service.
type VMServiceClient interface {
	GetTask(ctx context.Context, in *TaskRequest, opts ...grpc.CallOption) (*TaskResponse, error)
	GetFile(ctx context.Context, in *GetFileRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[FileData], error)
	SubmitFile(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[FileData, SubmitFileResponse], error)
	SubmitResult(ctx context.Context, in *TaskResultRequest, opts ...grpc.CallOption) (*TaskResultResponse, error)
}

type vmServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewVMServiceClient returns a client that issues every call on cc
// with the CBOR content subtype.
func NewVMServiceClient(cc grpc.ClientConnInterface) VMServiceClient {
	return &vmServiceClient{cc: cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *vmServiceClient) GetTask(ctx context.Context, in *TaskRequest, opts ...grpc.CallOption) (*TaskResponse, error) {
	out := new(TaskResponse)
	if err := c.cc.Invoke(ctx, GetTaskMethod, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *vmServiceClient) GetFile(ctx context.Context, in *GetFileRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[FileData], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], GetFileMethod, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	client := &grpc.GenericClientStream[GetFileRequest, FileData]{ClientStream: stream}
	if err := client.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := client.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *vmServiceClient) SubmitFile(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[FileData, SubmitFileResponse], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[1], SubmitFileMethod, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[FileData, SubmitFileResponse]{ClientStream: stream}, nil
}

func (c *vmServiceClient) SubmitResult(ctx context.Context, in *TaskResultRequest, opts ...grpc.CallOption) (*TaskResultResponse, error) {
	out := new(TaskResultResponse)
	if err := c.cc.Invoke(ctx, SubmitResultMethod, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// VMServiceServer is the host side of the VM service. Implementations
// should embed [UnimplementedVMServiceServer] so that calls they do not
// handle fail with codes.Unimplemented.
type VMServiceServer interface {
	GetTask(context.Context, *TaskRequest) (*TaskResponse, error)
	GetFile(*GetFileRequest, grpc.ServerStreamingServer[FileData]) error
	SubmitFile(grpc.ClientStreamingServer[FileData, SubmitFileResponse]) error
	SubmitResult(context.Context, *TaskResultRequest) (*TaskResultResponse, error)
}

// UnimplementedVMServiceServer answers every call with
// codes.Unimplemented.
type UnimplementedVMServiceServer struct{}

func (UnimplementedVMServiceServer) GetTask(context.Context, *TaskRequest) (*TaskResponse, error) {
	return nil, status.Error(codes.Unimplemented, "GetTask not implemented")
}

func (UnimplementedVMServiceServer) GetFile(*GetFileRequest, grpc.ServerStreamingServer[FileData]) error {
	return status.Error(codes.Unimplemented, "GetFile not implemented")
}

func (UnimplementedVMServiceServer) SubmitFile(grpc.ClientStreamingServer[FileData, SubmitFileResponse]) error {
	return status.Error(codes.Unimplemented, "SubmitFile not implemented")
}

func (UnimplementedVMServiceServer) SubmitResult(context.Context, *TaskResultRequest) (*TaskResultResponse, error) {
	return nil, status.Error(codes.Unimplemented, "SubmitResult not implemented")
}

// RegisterVMServiceServer registers srv on s.
func RegisterVMServiceServer(s grpc.ServiceRegistrar, srv VMServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TaskRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VMServiceServer).GetTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetTaskMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(VMServiceServer).GetTask(ctx, req.(*TaskRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func submitResultHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TaskResultRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VMServiceServer).SubmitResult(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SubmitResultMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(VMServiceServer).SubmitResult(ctx, req.(*TaskResultRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getFileHandler(srv any, stream grpc.ServerStream) error {
	in := new(GetFileRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(VMServiceServer).GetFile(in, &grpc.GenericServerStream[GetFileRequest, FileData]{ServerStream: stream})
}

func submitFileHandler(srv any, stream grpc.ServerStream) error {
	return srv.(VMServiceServer).SubmitFile(&grpc.GenericServerStream[FileData, SubmitFileResponse]{ServerStream: stream})
}

// ServiceDesc describes the VM service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VMServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetTask", Handler: getTaskHandler},
		{MethodName: "SubmitResult", Handler: submitResultHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "GetFile", Handler: getFileHandler, ServerStreams: true},
		{StreamName: "SubmitFile", Handler: submitFileHandler, ClientStreams: true},
	},
	Metadata: "vm_service.proto",
}

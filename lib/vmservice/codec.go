// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vmservice

import (
	"fmt"

	"google.golang.org/grpc/encoding"

	"github.com/bureau-foundation/vmshim/lib/codec"
)

// CodecName is the gRPC content subtype of every VM service call.
const CodecName = "cbor"

// maxDiagnosticLength caps the CBOR diagnostic notation included in a
// decode error.
const maxDiagnosticLength = 256

func init() {
	encoding.RegisterCodec(grpcCodec{})
}

// grpcCodec adapts lib/codec to gRPC's encoding.Codec.
type grpcCodec struct{}

func (grpcCodec) Name() string { return CodecName }

func (grpcCodec) Marshal(v any) ([]byte, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return data, nil
}

func (grpcCodec) Unmarshal(data []byte, v any) error {
	err := codec.Unmarshal(data, v)
	if err == nil {
		return nil
	}

	notation, diagnoseErr := codec.Diagnose(data)
	if diagnoseErr != nil {
		return fmt.Errorf("decoding %T from %d bytes: %w", v, len(data), err)
	}
	if len(notation) > maxDiagnosticLength {
		notation = notation[:maxDiagnosticLength] + "..."
	}
	return fmt.Errorf("decoding %T from %s: %w", v, notation, err)
}

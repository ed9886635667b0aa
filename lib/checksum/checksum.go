// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checksum

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// Hash is a 32-byte BLAKE3 digest.
type Hash [Size]byte

// Sum returns the digest of data.
func Sum(data []byte) Hash {
	return Hash(blake3.Sum256(data))
}

// String returns the hex encoding of the digest. This is the format
// used in logs.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the digest as a slice, the form carried in
// manifest entries on the wire.
func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// FromBytes converts a wire checksum back into a Hash.
func FromBytes(data []byte) (Hash, error) {
	var hash Hash
	if len(data) != Size {
		return hash, fmt.Errorf("checksum is %d bytes, want %d", len(data), Size)
	}
	copy(hash[:], data)
	return hash, nil
}

// Hasher accumulates a digest over a sequence of writes. The zero
// value is not usable; call New.
type Hasher struct {
	state *blake3.Hasher
}

// New returns a Hasher in its initial state.
func New() *Hasher {
	return &Hasher{state: blake3.New()}
}

// Write folds p into the running digest. It never returns an error.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.state.Write(p)
}

// Sum returns the digest of everything written so far. The Hasher
// stays usable; further writes extend the same input.
func (h *Hasher) Sum() Hash {
	var hash Hash
	copy(hash[:], h.state.Sum(nil))
	return hash
}

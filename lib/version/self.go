// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/vmshim/lib/checksum"
)

// SelfChecksum returns the BLAKE3 digest and absolute path of the
// running binary. Guest images are rebuilt often; the digest tells the
// host operator exactly which agent build a VM booted.
func SelfChecksum() (checksum.Hash, string, error) {
	executable, err := os.Executable()
	if err != nil {
		return checksum.Hash{}, "", fmt.Errorf("resolving own executable path: %w", err)
	}
	digest, err := FileChecksum(executable)
	if err != nil {
		return checksum.Hash{}, "", fmt.Errorf("hashing own binary at %s: %w", executable, err)
	}
	return digest, executable, nil
}

// FileChecksum streams the file at path through BLAKE3.
func FileChecksum(path string) (checksum.Hash, error) {
	file, err := os.Open(path)
	if err != nil {
		return checksum.Hash{}, err
	}
	defer file.Close()

	hasher := checksum.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return checksum.Hash{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return hasher.Sum(), nil
}

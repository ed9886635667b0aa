// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for vmshim packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls. Everything else in the
// test suite drives time through lib/clock.FakeClock.
//
// [UniqueID] generates monotonically increasing identifiers for task
// IDs in tests that share a fake host.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no vmshim-internal dependencies.
package testutil

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// The agent waits in two places: between GetTask polls when the host has
// no work, and while the workspace mount is not yet visible. Both accept
// a Clock. In production, Real() provides the standard library behavior.
// In tests, Fake() provides a deterministic clock that advances only
// when Advance is called, so a 30-second mount timeout runs in
// microseconds.
//
// # FakeClock Synchronization
//
// When a goroutine calls Sleep or After on a FakeClock, it registers a
// pending timer. Use WaitForTimers to block until a specific number of
// timers are registered before calling Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go loop.Run(ctx)
//	c.WaitForTimers(1)     // the loop is sleeping between polls
//	c.Advance(time.Second) // wake it deterministically
package clock

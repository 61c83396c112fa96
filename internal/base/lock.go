// Copyright 2026 The Shale Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

// LockAsserter is implemented by mutexes that can verify, in instrumented
// builds, that the calling goroutine holds them. Entry points whose
// precondition is "engine mutex held" call AssertHeld rather than locking
// themselves; a violation is a caller bug and the asserter is expected to
// fatal, not return.
type LockAsserter interface {
	AssertHeld()
}

// NoopLockAsserter is a LockAsserter that performs no checking. It is the
// default when the engine's mutex cannot report whether it is held.
type NoopLockAsserter struct{}

// AssertHeld implements LockAsserter.
func (NoopLockAsserter) AssertHeld() {}

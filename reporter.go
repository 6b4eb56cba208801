// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sockscript

import (
	"fmt"
	"log/slog"

	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sockscript/internal/logging"
)

// TestingT is what providers and factories report script violations to.  A
// *testing.T satisfies it.
type TestingT = require.TestingT

// panicT is used when no test was attached.  Script violations are never
// silently ignored.
type panicT struct{}

func (panicT) Errorf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}

func (panicT) FailNow() {
	panic("sockscript: script violation")
}

func nopLogger() *slog.Logger {
	return logging.Nop()
}

// helper marks the caller as a test helper when the reporter supports it.
func helper(t TestingT) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
}

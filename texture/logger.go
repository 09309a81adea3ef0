// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"log/slog"

	"github.com/gogpu/framegraph"
)

// slogger returns the package logger shared with framegraph.
func slogger() *slog.Logger {
	return framegraph.Logger()
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"log/slog"

	"github.com/gogpu/framegraph"
)

// slogger returns the logger shared with the framegraph package.
// All logging in passes goes through this function.
func slogger() *slog.Logger { return framegraph.Logger() }

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    func(*Config)
		wantErr error
	}{
		{name: "empty", input: "", want: func(*Config) {}},
		{
			name:  "partial",
			input: "width = 320\nheight = 200\nssao = false\ncapture = true\n",
			want: func(c *Config) {
				c.Width, c.Height = 320, 200
				c.SSAO = false
				c.Capture = true
			},
		},
		{
			name:  "scheduler",
			input: "cost_budget = 4096\nretain_resources = false\nhistory_key = \"main\"\n",
			want: func(c *Config) {
				c.CostBudget = 4096
				c.RetainResources = false
				c.HistoryKey = "main"
			},
		},
		{name: "unknown key", input: "fullscreen = true\n", wantErr: ErrInvalidConfig},
		{name: "zero width", input: "width = 0\n", wantErr: ErrInvalidConfig},
		{name: "negative budget", input: "cost_budget = -1\n", wantErr: ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseConfig = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConfig failed: %v", err)
			}
			want := DefaultConfig()
			tt.want(&want)
			if got != want {
				t.Errorf("ParseConfig = %+v, want %+v", got, want)
			}
		})
	}
}

func TestParseConfigSyntax(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("width = \n"))
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if errors.Is(err, ErrInvalidConfig) {
		t.Errorf("syntax error reported as invalid configuration: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vxdemo.toml")
	if err := os.WriteFile(path, []byte("gizmos = false\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Gizmos {
		t.Error("gizmos = true, want false")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig of a missing file = %v, want os.ErrNotExist", err)
	}
}

func TestWatchConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vxdemo.toml")
	if err := os.WriteFile(path, []byte("ar = false\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reloaded := make(chan Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, path, func(c Config) { reloaded <- c })
	}()

	// The watcher starts asynchronously: rewrite until a reload arrives.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	var got Config
wait:
	for {
		select {
		case got = <-reloaded:
			break wait
		case <-tick.C:
			if err := os.WriteFile(path, []byte("ar = true\n"), 0o600); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			cancel()
			t.Fatal("no reload within 5s")
		}
	}
	if !got.AR {
		t.Error("reloaded config has ar = false")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WatchConfig = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WatchConfig did not return after cancel")
	}
}

func TestWatchConfigMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "vxdemo.toml")
	if err := WatchConfig(context.Background(), path, func(Config) {}); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

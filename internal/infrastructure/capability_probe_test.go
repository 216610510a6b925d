package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script in a temp dir
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestExecProbe(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		available bool
		version   string
	}{
		{
			name:      "reports first line",
			body:      "echo 'aria2 version 1.37.0'\necho 'Copyright (C) 2006'",
			available: true,
			version:   "aria2 version 1.37.0",
		},
		{
			name:      "non-zero exit",
			body:      "exit 3",
			available: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := writeScript(t, "tool", tt.body)
			res := NewExecProbe("tool", bin, time.Second, "--version").Probe(context.Background())

			assert.Equal(t, tt.available, res.Available)
			assert.Equal(t, tt.version, res.Version)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestExecProbe_MissingBinary(t *testing.T) {
	res := NewExecProbe("aria2c", "/nonexistent/aria2c", time.Second).Probe(context.Background())

	assert.False(t, res.Available)
	assert.Equal(t, "aria2c not found in PATH", res.Message)
}

func TestExecProbe_Timeout(t *testing.T) {
	bin := writeScript(t, "slow", "exec sleep 5")
	res := NewExecProbe("slow", bin, 50*time.Millisecond).Probe(context.Background())

	assert.False(t, res.Available)
	assert.Contains(t, res.Message, "did not answer")
}

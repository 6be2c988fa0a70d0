package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"inkwell/internal/inkwell"
)

func TestSourceAndDestination(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no arguments", args: nil, wantErr: inkwell.ErrUsage},
		{name: "source only", args: []string{"/home/user/docs"}, wantErr: inkwell.ErrUsage},
		{name: "source and destination", args: []string{"/home/user/docs", "/backup"}},
		{name: "extra argument", args: []string{"/home/user/docs", "/backup", "/other"}, wantErr: inkwell.ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sourceAndDestination(rootCmd, tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("sourceAndDestination(%q) = %v, want %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestRun_UsageError(t *testing.T) {
	for _, args := range [][]string{{}, {"/home/user/docs"}, {"a", "b", "c"}} {
		var stderr bytes.Buffer
		if code := run(context.Background(), args, &stderr); code != 1 {
			t.Errorf("run(%q) = %d, want 1", args, code)
		}
		out := stderr.String()
		if !strings.Contains(out, "inkwell: "+inkwell.ErrUsage.Error()) {
			t.Errorf("run(%q) stderr = %q, want the usage error", args, out)
		}
		if !strings.Contains(out, "Usage:") {
			t.Errorf("run(%q) stderr = %q, want the usage text", args, out)
		}
	}
}

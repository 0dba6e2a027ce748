package main

import (
	"bytes"
	"strings"
	"testing"

	"modelgraph/internal/config"
)

func TestRun_ExitsEarly(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantOut string
		wantErr string
	}{
		{name: "version", args: []string{"--version"}, wantOut: "modelgraph dev (none)\n"},
		{name: "help", args: []string{"--help"}},
		{name: "unknown flag", args: []string{"--no-such-flag"}, wantErr: "failed to load configuration"},
		{name: "invalid strategy", args: []string{"--schema.eager_strategy=lazy"}, wantErr: "configuration validation failed"},
		{name: "missing config file", args: []string{"--config=/nonexistent/modelgraph.yaml"}, wantErr: "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(tt.args, &out)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			} else if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if out.String() != tt.wantOut {
				t.Fatalf("stdout = %q, want %q", out.String(), tt.wantOut)
			}
		})
	}
}

func TestCheckConfig(t *testing.T) {
	cfg := &config.Config{}
	err := checkConfig(cfg)
	if err == nil {
		t.Fatalf("expected an empty configuration to fail validation")
	}
	if !strings.Contains(err.Error(), "server.port") {
		t.Fatalf("expected the port error to be reported, got %v", err)
	}
}

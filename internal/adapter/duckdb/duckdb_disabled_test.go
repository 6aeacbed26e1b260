//go:build !duckdb

package duckdb

import (
	"context"
	"strings"
	"testing"

	"github.com/sadopc/dbnav/internal/adapter"
)

func TestDuckDBDisabled_Name(t *testing.T) {
	d := &disabledDriver{}
	if got := d.Name(); got != "duckdb" {
		t.Errorf("Name() = %q, want %q", got, "duckdb")
	}
}

func TestDuckDBDisabled_Connect(t *testing.T) {
	d := &disabledDriver{}
	sess, err := d.Connect(context.Background(), "test.db")

	if sess != nil {
		t.Error("Connect() should return nil session when disabled")
	}
	if err == nil {
		t.Fatal("Connect() should return an error when disabled")
	}
	if !strings.Contains(err.Error(), "not compiled in") {
		t.Errorf("Connect() error = %q, expected to contain 'not compiled in'", err.Error())
	}
	if err != errDisabled {
		t.Errorf("Connect() error should be errDisabled, got %v", err)
	}
}

func TestDuckDBDisabled_Registration(t *testing.T) {
	d, ok := adapter.Registry["duckdb"]
	if !ok {
		t.Fatal("duckdb driver not found in registry")
	}
	if d.Name() != "duckdb" {
		t.Errorf("registered driver Name() = %q, want %q", d.Name(), "duckdb")
	}
}

func TestDuckDBDisabled_ErrorMessage(t *testing.T) {
	// The message must mention the build tag so users can self-serve.
	msg := errDisabled.Error()
	if !strings.Contains(msg, "DuckDB") {
		t.Errorf("errDisabled message = %q, expected to contain 'DuckDB'", msg)
	}
	if !strings.Contains(msg, "-tags duckdb") {
		t.Errorf("errDisabled message = %q, expected to contain '-tags duckdb'", msg)
	}
}

func TestDuckDBDisabled_SessionStub(t *testing.T) {
	s := &disabledSession{}
	ctx := context.Background()

	if _, err := s.Databases(ctx); err != errDisabled {
		t.Errorf("Databases() error = %v, want errDisabled", err)
	}
	if _, err := s.Tables(ctx, "", ""); err != errDisabled {
		t.Errorf("Tables() error = %v, want errDisabled", err)
	}
	if _, err := s.Columns(ctx, "", "", ""); err != errDisabled {
		t.Errorf("Columns() error = %v, want errDisabled", err)
	}
	if _, err := s.AllDefinitions(ctx, ""); err != errDisabled {
		t.Errorf("AllDefinitions() error = %v, want errDisabled", err)
	}
	if _, err := s.Execute(ctx, ""); err != errDisabled {
		t.Errorf("Execute() error = %v, want errDisabled", err)
	}
	if err := s.Cancel(); err != errDisabled {
		t.Errorf("Cancel() error = %v, want errDisabled", err)
	}
	if err := s.Ping(ctx); err != errDisabled {
		t.Errorf("Ping() error = %v, want errDisabled", err)
	}
	if err := s.Close(); err != errDisabled {
		t.Errorf("Close() error = %v, want errDisabled", err)
	}
	if got := s.DBType(); got != "duckdb" {
		t.Errorf("DBType() = %q, want %q", got, "duckdb")
	}
}

package runner

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
)

func testLog() log.Interface {
	return &log.Logger{Handler: discard.New(), Level: log.DebugLevel}
}

func TestOutputTrimsStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix shell utilities")
	}

	r := New(testLog(), 0)
	out, err := r.Output(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected trimmed %q, got %q", "hello", out)
	}
}

func TestOutputFailedCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix shell utilities")
	}

	r := New(testLog(), 0)
	if _, err := r.Output(context.Background(), "false"); err == nil {
		t.Fatalf("expected error for non-zero exit")
	}
}

func TestOutputTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix shell utilities")
	}

	r := New(testLog(), 100*time.Millisecond)
	start := time.Now()
	_, err := r.Output(context.Background(), "sleep", "5")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("command was not killed promptly, took %s", elapsed)
	}
}

func TestZeroTimeoutSelectsDefault(t *testing.T) {
	r := New(testLog(), 0)
	if r.timeout != DefaultTimeout {
		t.Fatalf("expected %s, got %s", DefaultTimeout, r.timeout)
	}
}

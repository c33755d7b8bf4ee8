package shutdown

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"
)

func TestAbortExitsWithStatusOne(t *testing.T) {
	code := -1
	exit = func(c int) { code = c }
	defer func() { exit = func(c int) {} }()

	Abort("failed to open store", errors.New("boom"))
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestSignalCancelsContext(t *testing.T) {
	ctx, cancel := SetupSignalHandler(context.Background())
	defer cancel()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("context not cancelled after SIGTERM")
	}
}

//go:build windows

package singleinstance

import (
	"errors"
	"strings"
	"testing"
)

func TestTryLock(t *testing.T) {
	t.Run("second lock returns ErrAlreadyRunning", func(t *testing.T) {
		lock1, err := TryLock(`Local\trayhop-test-second`)
		if err != nil {
			t.Fatalf("first TryLock failed: %v", err)
		}
		defer lock1.Release()

		lock2, err := TryLock(`Local\trayhop-test-second`)
		if !errors.Is(err, ErrAlreadyRunning) {
			t.Fatalf("second TryLock: got err=%v, want ErrAlreadyRunning", err)
		}
		if lock2 != nil {
			t.Fatal("second TryLock returned non-nil lock on ErrAlreadyRunning")
		}
	})

	t.Run("lock reacquirable after release", func(t *testing.T) {
		lock, err := TryLock(`Local\trayhop-test-reacquire`)
		if err != nil {
			t.Fatalf("TryLock failed: %v", err)
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		again, err := TryLock(`Local\trayhop-test-reacquire`)
		if err != nil {
			t.Fatalf("TryLock after release failed: %v", err)
		}
		again.Release()
	})

	t.Run("empty name rejected", func(t *testing.T) {
		if _, err := TryLock(""); err == nil {
			t.Fatal("TryLock(\"\") expected error")
		}
	})

	t.Run("release is idempotent", func(t *testing.T) {
		var nilLock *Lock
		if err := nilLock.Release(); err != nil {
			t.Fatalf("nil Release: %v", err)
		}
		lock, err := TryLock(`Local\trayhop-test-idempotent`)
		if err != nil {
			t.Fatalf("TryLock failed: %v", err)
		}
		lock.Release()
		if err := lock.Release(); err != nil {
			t.Fatalf("second Release: %v", err)
		}
	})
}

func TestDefaultName(t *testing.T) {
	t.Setenv("USERNAME", `CORP\tester`)
	if got := DefaultName(); got != `Local\trayhop-CORP_tester` {
		t.Fatalf("DefaultName() = %q", got)
	}
	if !strings.HasPrefix(DefaultName(), `Local\`) {
		t.Fatal("mutex must be session-local")
	}
}

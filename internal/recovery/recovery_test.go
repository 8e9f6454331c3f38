package recovery

import (
	"bytes"
	"os"
	"os/exec"
	"testing"

	"go.uber.org/zap"
)

// TestHandlePanic_NoPanic verifies that HandlePanic does nothing when there's no panic
func TestHandlePanic_NoPanic(t *testing.T) {
	func() {
		defer HandlePanic(nil)
	}()
}

// TestHandlePanicFunc_NoPanic verifies that HandlePanicFunc does nothing when there's no panic
func TestHandlePanicFunc_NoPanic(t *testing.T) {
	cleanupCalled := false

	func() {
		defer HandlePanicFunc(zap.NewNop(), func() {
			cleanupCalled = true
		})
	}()

	if cleanupCalled {
		t.Error("cleanup was called without a panic")
	}
}

// TestHandlePanicFunc_NilCleanup verifies that nil cleanup doesn't cause issues
func TestHandlePanicFunc_NilCleanup(t *testing.T) {
	func() {
		defer HandlePanicFunc(nil, nil)
	}()
}

// TestHandlePanic_ExitsOnPanic uses a subprocess to test panic behavior
func TestHandlePanic_ExitsOnPanic(t *testing.T) {
	if os.Getenv("TEST_PANIC_EXIT") == "1" {
		defer HandlePanic(zap.NewNop())
		panic("test panic")
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestHandlePanic_ExitsOnPanic")
	cmd.Env = append(os.Environ(), "TEST_PANIC_EXIT=1")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	if exitErr, ok := err.(*exec.ExitError); ok {
		if exitErr.ExitCode() != 1 {
			t.Errorf("exit code = %d, want 1", exitErr.ExitCode())
		}
	} else if err == nil {
		t.Error("expected process to exit with error, but it succeeded")
	}

	output := stderr.Bytes()
	for _, want := range []string{"FATAL", "test panic", "Stack trace"} {
		if !bytes.Contains(output, []byte(want)) {
			t.Errorf("stderr should contain %q, got: %s", want, output)
		}
	}
}

// TestHandlePanicFunc_ExitsOnPanic verifies cleanup runs before the exit
func TestHandlePanicFunc_ExitsOnPanic(t *testing.T) {
	if os.Getenv("TEST_PANIC_FUNC_EXIT") == "1" {
		defer HandlePanicFunc(nil, func() {
			_, _ = os.Stdout.WriteString("SIDETONE_OFF\n")
		})
		panic("test panic func")
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestHandlePanicFunc_ExitsOnPanic")
	cmd.Env = append(os.Environ(), "TEST_PANIC_FUNC_EXIT=1")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if exitErr, ok := err.(*exec.ExitError); ok {
		if exitErr.ExitCode() != 1 {
			t.Errorf("exit code = %d, want 1", exitErr.ExitCode())
		}
	} else if err == nil {
		t.Error("expected process to exit with error, but it succeeded")
	}

	if !bytes.Contains(stdout.Bytes(), []byte("SIDETONE_OFF")) {
		t.Errorf("stdout should contain 'SIDETONE_OFF', got: %s", stdout.String())
	}
	if !bytes.Contains(stderr.Bytes(), []byte("test panic func")) {
		t.Errorf("stderr should contain 'test panic func', got: %s", stderr.String())
	}
}

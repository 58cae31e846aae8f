package service

import (
	"bytes"
	"testing"

	"github.com/ludo-technologies/restructor/domain"
)

func TestNewProgressManager_NonInteractive(t *testing.T) {
	// When disabled, should return NoOpProgressManager
	pm := NewProgressManager(false)
	if pm.IsInteractive() {
		t.Error("expected non-interactive progress manager when disabled")
	}

	// Should implement the interface
	var _ domain.ProgressManager = pm
}

func TestNoOpProgressManager(t *testing.T) {
	pm := &NoOpProgressManager{}

	// IsInteractive should return false
	if pm.IsInteractive() {
		t.Error("expected NoOpProgressManager.IsInteractive() to return false")
	}

	// StartTask should return a no-op task
	task := pm.StartTask("test", 100)
	if task == nil {
		t.Fatal("expected non-nil task from StartTask")
	}

	// All operations should be no-ops (not panic)
	task.Increment(10)
	task.Describe("testing")
	task.Complete()

	// Close should be a no-op
	pm.Close()
}

func TestNoOpTaskProgress(t *testing.T) {
	tp := &NoOpTaskProgress{}

	// All operations should be no-ops (not panic)
	tp.Increment(10)
	tp.Describe("testing")
	tp.Complete()

	// Should implement the interface
	var _ domain.TaskProgress = tp
}

func TestProgressManagerImpl_Interface(t *testing.T) {
	// Verify ProgressManagerImpl implements the interface
	var _ domain.ProgressManager = &ProgressManagerImpl{}
	var _ domain.TaskProgress = &TaskProgressImpl{}
}

func TestIsInteractiveEnvironment_CI(t *testing.T) {
	t.Setenv("CI", "true")
	if IsInteractiveEnvironment() {
		t.Error("expected non-interactive environment under CI")
	}
}

func TestIsInteractiveEnvironment_OptOut(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("RESTRUCTOR_NO_PROGRESS", "1")
	if IsInteractiveEnvironment() {
		t.Error("expected RESTRUCTOR_NO_PROGRESS to disable progress bars")
	}
}

func TestProgressManagerImpl_WithWriter(t *testing.T) {
	var buf bytes.Buffer
	pm := NewProgressManagerWithWriter(&buf)
	if !pm.IsInteractive() {
		t.Error("expected ProgressManagerImpl to be interactive")
	}

	task := pm.StartTask("Decompiling", 3)
	task.Increment(1)
	task.Describe("Calc.sum")
	task.Increment(1)

	// Close finishes the unfinished bar and may be called twice
	pm.Close()
	pm.Close()

	if buf.Len() == 0 {
		t.Error("expected the progress bar to render to the writer")
	}
}

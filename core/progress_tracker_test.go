package core

import (
	"sync"
	"testing"
)

func TestNewProgressTracker(t *testing.T) {
	tests := []struct {
		name  string
		total int
	}{
		{"zero total (unknown)", 0},
		{"single country", 1},
		{"full member list", 57},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewProgressTracker(tt.total)
			if tracker == nil {
				t.Fatal("NewProgressTracker returned nil")
			}
			if tracker.Total() != tt.total {
				t.Errorf("Total() = %d, want %d", tracker.Total(), tt.total)
			}
			if tracker.Completed() != 0 {
				t.Errorf("Completed() = %d, want 0", tracker.Completed())
			}
			if tracker.Failed() != 0 {
				t.Errorf("Failed() = %d, want 0", tracker.Failed())
			}
		})
	}
}

func TestProgressTracker_MarkCompleted(t *testing.T) {
	tracker := NewProgressTracker(57)

	tracker.MarkCompleted()
	tracker.MarkCompleted()

	if tracker.Completed() != 2 {
		t.Errorf("Completed() = %d, want 2", tracker.Completed())
	}
}

func TestProgressTracker_FailedCountsTowardProgress(t *testing.T) {
	tracker := NewProgressTracker(4)

	tracker.MarkCompleted()
	tracker.MarkCompleted()
	tracker.MarkFailed()
	tracker.MarkFailed()

	info := tracker.Progress()
	if info.Percent != 100 {
		t.Errorf("Percent = %v, want 100 when all units finished", info.Percent)
	}
	if !tracker.IsComplete() {
		t.Error("IsComplete() = false, want true")
	}
	if info.Failed != 2 {
		t.Errorf("Failed = %d, want 2", info.Failed)
	}
}

func TestProgressTracker_Progress(t *testing.T) {
	tracker := NewProgressTracker(10)
	tracker.SetCurrent("Morocco")

	for i := 0; i < 5; i++ {
		tracker.MarkCompleted()
	}

	info := tracker.Progress()
	if info.Percent != 50 {
		t.Errorf("Percent = %v, want 50", info.Percent)
	}
	if info.Completed != 5 {
		t.Errorf("Completed = %d, want 5", info.Completed)
	}
	if info.Current != "Morocco" {
		t.Errorf("Current = %q, want Morocco", info.Current)
	}
	if info.Elapsed <= 0 {
		t.Error("Elapsed should be positive")
	}
}

func TestProgressTracker_UnknownTotal(t *testing.T) {
	tracker := NewProgressTracker(0)
	tracker.MarkCompleted()

	info := tracker.Progress()
	if info.Percent != -1 {
		t.Errorf("Percent = %v, want -1 for unknown total", info.Percent)
	}
	if tracker.IsComplete() {
		t.Error("IsComplete() should be false when total is unknown")
	}
}

func TestProgressTracker_SetTotal(t *testing.T) {
	tracker := NewProgressTracker(0)
	tracker.SetTotal(57)

	if tracker.Total() != 57 {
		t.Errorf("Total() = %d, want 57", tracker.Total())
	}

	// Negative total clamps to zero
	tracker.SetTotal(-5)
	if tracker.Total() != 0 {
		t.Errorf("Total() = %d, want 0 after negative set", tracker.Total())
	}
}

func TestProgressTracker_Reset(t *testing.T) {
	tracker := NewProgressTracker(10)
	tracker.SetCurrent("Chad")
	tracker.MarkCompleted()
	tracker.MarkFailed()

	tracker.Reset(20)

	if tracker.Total() != 20 {
		t.Errorf("Total() = %d, want 20", tracker.Total())
	}
	if tracker.Completed() != 0 || tracker.Failed() != 0 {
		t.Error("Reset should clear completed and failed counts")
	}
	if info := tracker.Progress(); info.Current != "" {
		t.Errorf("Current = %q, want empty after reset", info.Current)
	}
}

func TestProgressTracker_ConcurrentUpdates(t *testing.T) {
	tracker := NewProgressTracker(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				tracker.MarkCompleted()
				tracker.Progress()
			}
		}()
	}
	wg.Wait()

	if tracker.Completed() != 100 {
		t.Errorf("Completed() = %d, want 100", tracker.Completed())
	}
	if !tracker.IsComplete() {
		t.Error("IsComplete() = false, want true")
	}
}

func TestProgressTracker_PercentCapsAt100(t *testing.T) {
	tracker := NewProgressTracker(2)
	tracker.MarkCompleted()
	tracker.MarkCompleted()
	tracker.MarkCompleted() // Over-report

	if info := tracker.Progress(); info.Percent != 100 {
		t.Errorf("Percent = %v, want capped at 100", info.Percent)
	}
}

package core

import (
	"sync"
	"time"
)

// ProgressInfo contains a snapshot of pipeline progress.
// This is returned by ProgressTracker.Progress() for display.
type ProgressInfo struct {
	// Total units of work (countries, rows), 0 if unknown
	Total int
	// Completed units so far
	Completed int
	// Failed units so far
	Failed int
	// Percentage complete (0-100, or -1 if total is unknown)
	Percent float64
	// Processing rate in units per minute
	RatePerMin float64
	// Estimated time remaining (0 if unknown or complete)
	ETA time.Duration
	// Elapsed time since tracking started
	Elapsed time.Duration
	// Label of the unit currently being processed (e.g. a country name)
	Current string
}

// ProgressTracker tracks multi-unit pipeline progress with thread-safe
// updates. It calculates rate, ETA, and provides formatted progress
// information for console status lines and the dashboard.
type ProgressTracker struct {
	mu sync.RWMutex

	// Total units of work (0 if unknown)
	total int
	// Completed units so far
	completed int
	// Failed units so far
	failed int
	// Label of the in-flight unit
	current string
	// Time when tracking started
	startTime time.Time
	// Last update time for rate calculation
	lastUpdateTime time.Time
	// Units done at last update (for rate calculation)
	lastDone int
	// Moving average of rate (units/sec)
	rateAvg float64
	// Weight for exponential moving average (0-1, higher = more recent data)
	rateAlpha float64
}

// NewProgressTracker creates a new progress tracker.
// total is the number of work units (use 0 if unknown).
func NewProgressTracker(total int) *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		total:          total,
		startTime:      now,
		lastUpdateTime: now,
		rateAlpha:      0.3, // Balance between responsiveness and smoothness
	}
}

// SetCurrent records the label of the unit now being processed.
// This method is thread-safe.
func (p *ProgressTracker) SetCurrent(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = label
}

// MarkCompleted records one successfully finished unit.
// This method is thread-safe.
func (p *ProgressTracker) MarkCompleted() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	p.updateRate()
}

// MarkFailed records one failed unit. Failed units count toward overall
// progress so the ETA stays meaningful when some countries are skipped.
// This method is thread-safe.
func (p *ProgressTracker) MarkFailed() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed++
	p.updateRate()
}

// SetTotal updates the total unit count.
// This method is thread-safe.
func (p *ProgressTracker) SetTotal(total int) {
	if total < 0 {
		total = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
}

// updateRate recalculates the processing rate.
// Must be called with mu held.
func (p *ProgressTracker) updateRate() {
	now := time.Now()
	elapsed := now.Sub(p.lastUpdateTime).Seconds()

	// Only update rate if some time has passed
	if elapsed >= 0.1 {
		done := p.completed + p.failed
		unitsInInterval := done - p.lastDone
		instantRate := float64(unitsInInterval) / elapsed

		// Exponential moving average for smooth rate display
		if p.rateAvg == 0 {
			p.rateAvg = instantRate
		} else {
			p.rateAvg = p.rateAlpha*instantRate + (1-p.rateAlpha)*p.rateAvg
		}

		p.lastUpdateTime = now
		p.lastDone = done
	}
}

// Progress returns the current progress information.
// This method is thread-safe.
func (p *ProgressTracker) Progress() ProgressInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	now := time.Now()
	elapsed := now.Sub(p.startTime)
	done := p.completed + p.failed

	info := ProgressInfo{
		Total:      p.total,
		Completed:  p.completed,
		Failed:     p.failed,
		Percent:    -1, // Unknown if total is 0
		RatePerMin: p.rateAvg * 60,
		Elapsed:    elapsed,
		Current:    p.current,
	}

	// Calculate percentage if total is known
	if p.total > 0 {
		info.Percent = float64(done) / float64(p.total) * 100

		// Cap percentage at 100
		if info.Percent > 100 {
			info.Percent = 100
		}

		// Calculate ETA if we have a rate and are not yet complete
		if p.rateAvg > 0 && done < p.total {
			remaining := float64(p.total - done)
			etaSeconds := remaining / p.rateAvg
			info.ETA = time.Duration(etaSeconds * float64(time.Second))
		}
	}

	return info
}

// Completed returns the completed unit count.
// This method is thread-safe.
func (p *ProgressTracker) Completed() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.completed
}

// Failed returns the failed unit count.
// This method is thread-safe.
func (p *ProgressTracker) Failed() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failed
}

// Total returns the total unit count.
// This method is thread-safe.
func (p *ProgressTracker) Total() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

// IsComplete returns true if every unit finished (completed or failed).
// Returns false if total is unknown (0).
// This method is thread-safe.
func (p *ProgressTracker) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total > 0 && p.completed+p.failed >= p.total
}

// Reset resets the tracker to start a new run.
// This method is thread-safe.
func (p *ProgressTracker) Reset(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.total = total
	p.completed = 0
	p.failed = 0
	p.current = ""
	p.startTime = now
	p.lastUpdateTime = now
	p.lastDone = 0
	p.rateAvg = 0
}

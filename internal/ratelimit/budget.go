package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// ScanBudget caps how many drift scans a tenant may run per scope within a window.
type ScanBudget struct {
	mu     sync.Mutex
	counts map[string]*windowCounter

	maxPerWindow int
	windowSize   time.Duration
	now          func() time.Time
}

type windowCounter struct {
	count     int
	windowEnd time.Time
}

// NewScanBudget creates a budget of maxPerWindow scans per (tenant, scope) per windowSize.
// A non-positive maxPerWindow returns nil; a nil *ScanBudget allows everything.
func NewScanBudget(maxPerWindow int, windowSize time.Duration) *ScanBudget {
	if maxPerWindow <= 0 {
		return nil
	}
	return &ScanBudget{
		counts:       make(map[string]*windowCounter),
		maxPerWindow: maxPerWindow,
		windowSize:   windowSize,
		now:          time.Now,
	}
}

func budgetKey(tenantID, scope string) string {
	return tenantID + "|" + scope
}

// Allow records one scan for the tenant and scope, or returns an error when the
// window is already exhausted. Rejected scans are not counted.
func (b *ScanBudget) Allow(tenantID, scope string) error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := budgetKey(tenantID, scope)
	now := b.now()
	wc, ok := b.counts[key]
	if !ok || now.After(wc.windowEnd) {
		b.counts[key] = &windowCounter{count: 1, windowEnd: now.Add(b.windowSize)}
		return nil
	}
	if wc.count >= b.maxPerWindow {
		return fmt.Errorf("scan budget exceeded: tenant %s scope %s (%d/%d in window)",
			tenantID, scope, wc.count, b.maxPerWindow)
	}
	wc.count++
	return nil
}

// Remaining returns how many scans the tenant may still start in the current window.
func (b *ScanBudget) Remaining(tenantID, scope string) int {
	if b == nil {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	wc, ok := b.counts[budgetKey(tenantID, scope)]
	if !ok || b.now().After(wc.windowEnd) {
		return b.maxPerWindow
	}
	return b.maxPerWindow - wc.count
}

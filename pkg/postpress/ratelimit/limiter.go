// Package ratelimit implements per-client-address rate admission control,
// partitioned by operation class. Each class keeps an independent budget;
// an operation consumes budget from exactly one class.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/postpress/postpress/pkg/postpress"
)

// Budget is the admission budget for one class: at most Requests
// operations per rolling Window.
type Budget struct {
	Requests int
	Window   time.Duration
}

// DefaultBudgets returns the standard class budgets.
func DefaultBudgets() map[postpress.AdmissionClass]Budget {
	return map[postpress.AdmissionClass]Budget{
		postpress.ClassGeneral:        {Requests: 100, Window: 15 * time.Minute},
		postpress.ClassAuthentication: {Requests: 20, Window: 15 * time.Minute},
		postpress.ClassUpload:         {Requests: 50, Window: 60 * time.Minute},
	}
}

type clientWindow struct {
	resetTime time.Time
	count     int
}

type classLimiter struct {
	budget  Budget
	clients map[string]*clientWindow
}

// Limiter admits or rejects operations before they reach business logic.
// Counters are shared mutable state across concurrent operations; the
// mutex keeps increments atomic with respect to concurrent reads so a
// burst from one address cannot undercount.
type Limiter struct {
	mu      sync.Mutex
	classes map[postpress.AdmissionClass]*classLimiter
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New creates a limiter with the given per-class budgets and starts a
// background sweep that evicts expired client windows.
func New(budgets map[postpress.AdmissionClass]Budget) *Limiter {
	return newLimiter(budgets, time.Now)
}

// newLimiter injects the clock; it must be set before the sweep starts.
func newLimiter(budgets map[postpress.AdmissionClass]Budget, now func() time.Time) *Limiter {
	l := &Limiter{
		classes: make(map[postpress.AdmissionClass]*classLimiter, len(budgets)),
		now:     now,
		stop:    make(chan struct{}),
	}
	minWindow := time.Duration(0)
	for class, budget := range budgets {
		l.classes[class] = &classLimiter{
			budget:  budget,
			clients: make(map[string]*clientWindow),
		}
		if minWindow == 0 || budget.Window < minWindow {
			minWindow = budget.Window
		}
	}
	if minWindow > 0 {
		go l.sweep(minWindow)
	}
	return l
}

// Admit charges one request from the client against the class budget.
// It returns postpress.ErrRateLimited once the budget for the current
// window is exhausted; windows roll from the first request, not from
// fixed bucket boundaries.
func (l *Limiter) Admit(client string, class postpress.AdmissionClass) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.classes[class]
	if !ok {
		return fmt.Errorf("unknown admission class %q", class)
	}

	now := l.now()
	window, exists := cl.clients[client]
	if !exists || now.After(window.resetTime) {
		cl.clients[client] = &clientWindow{
			count:     1,
			resetTime: now.Add(cl.budget.Window),
		}
		return nil
	}

	if window.count >= cl.budget.Requests {
		return postpress.ErrRateLimited
	}
	window.count++
	return nil
}

// Close stops the background eviction sweep.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

// sweep periodically drops expired client windows so idle addresses do
// not accumulate.
func (l *Limiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for _, cl := range l.classes {
				for client, window := range cl.clients {
					if now.After(window.resetTime) {
						delete(cl.clients, client)
					}
				}
			}
			l.mu.Unlock()
		}
	}
}

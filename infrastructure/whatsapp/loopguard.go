package whatsapp

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LoopGuard suppresses re-ingestion of messages the CRM itself just sent,
// so a UI or automation send observed back through the transport is never
// persisted, forwarded or announced a second time.
//
// The recently-sent set is cleared in full on a fixed period rather than
// per entry. A very old, never-consumed ID can be forgotten at a clear
// boundary; the in-flight flags cover the common race, so this is a
// bounded leak, not a correctness problem.
type LoopGuard struct {
	mu                sync.Mutex
	recentIDs         map[string]struct{}
	uiSending         bool
	automationSending bool

	stopOnce sync.Once
	done     chan struct{}
}

func NewLoopGuard(clearInterval time.Duration) *LoopGuard {
	if clearInterval <= 0 {
		clearInterval = 60 * time.Second
	}
	g := &LoopGuard{
		recentIDs: make(map[string]struct{}),
		done:      make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(clearInterval)
		defer ticker.Stop()
		for {
			select {
			case <-g.done:
				return
			case <-ticker.C:
				g.mu.Lock()
				n := len(g.recentIDs)
				g.recentIDs = make(map[string]struct{})
				g.mu.Unlock()
				if n > 0 {
					logrus.Debugf("[LOOP_GUARD] Cleared %d recently-sent ids", n)
				}
			}
		}
	}()

	return g
}

// Close stops the periodic clear goroutine.
func (g *LoopGuard) Close() {
	g.stopOnce.Do(func() { close(g.done) })
}

// MarkUISend records a message identifier sent by the UI chat surface.
func (g *LoopGuard) MarkUISend(id string) {
	if id == "" {
		return
	}
	g.mu.Lock()
	g.recentIDs[id] = struct{}{}
	g.mu.Unlock()
}

// ConsumeIfUISend reports membership and removes the entry, so each
// identifier suppresses at most one echo.
func (g *LoopGuard) ConsumeIfUISend(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.recentIDs[id]; ok {
		delete(g.recentIDs, id)
		return true
	}
	return false
}

func (g *LoopGuard) BeginUISend() {
	g.mu.Lock()
	g.uiSending = true
	g.mu.Unlock()
}

func (g *LoopGuard) EndUISend() {
	g.mu.Lock()
	g.uiSending = false
	g.mu.Unlock()
}

func (g *LoopGuard) BeginAutomationSend() {
	g.mu.Lock()
	g.automationSending = true
	g.mu.Unlock()
}

func (g *LoopGuard) EndAutomationSend() {
	g.mu.Lock()
	g.automationSending = false
	g.mu.Unlock()
}

func (g *LoopGuard) IsUISending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.uiSending
}

func (g *LoopGuard) IsAutomationSending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.automationSending
}

// SuppressEcho runs the ordered echo checks for a self-originated event:
// UI send in flight, then recently-sent membership (consuming it), then
// automation send in flight. True means the event is an echo of our own
// action and must be dropped silently.
func (g *LoopGuard) SuppressEcho(id string) bool {
	if g.IsUISending() {
		return true
	}
	if g.ConsumeIfUISend(id) {
		return true
	}
	return g.IsAutomationSending()
}

// In-memory cooldown tracking for duplicate alert suppression.
package dispatch

import (
	"sync"
	"time"
)

// DefaultCooldown matches the backend's one hour duplicate window.
const DefaultCooldown = time.Hour

// Cooldown suppresses repeat alerts of the same type within a window.
// Keys are farm-scoped alert types; entries expire after the window and a
// background sweep keeps the map from growing unbounded.
type Cooldown struct {
	window   time.Duration
	mu       sync.Mutex
	lastSent map[string]time.Time
	stopChan chan struct{}
	stopped  bool
}

// NewCooldown creates a cooldown tracker. window <= 0 uses the default.
func NewCooldown(window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	c := &Cooldown{
		window:   window,
		lastSent: make(map[string]time.Time),
		stopChan: make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Allow reports whether an alert under key may be sent now, and if so marks
// it as sent. A repeat inside the window is suppressed.
func (c *Cooldown) Allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return true
	}

	now := time.Now()
	if last, ok := c.lastSent[key]; ok && now.Sub(last) < c.window {
		return false
	}
	c.lastSent[key] = now
	return true
}

// Close stops the background sweep.
func (c *Cooldown) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
		c.lastSent = nil
	}
	return nil
}

// cleanup periodically removes expired entries.
func (c *Cooldown) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.mu.Lock()
			if !c.stopped {
				now := time.Now()
				for key, last := range c.lastSent {
					if now.Sub(last) >= c.window {
						delete(c.lastSent, key)
					}
				}
			}
			c.mu.Unlock()
		}
	}
}

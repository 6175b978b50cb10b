package service

import (
	"log/slog"
	"sync"
)

// LeaveGuard turns the navigation guard into a two-step interrupt for hosts
// that exit on a signal. While a session is recording the first interrupt
// only warns; a second one, or the guard releasing, lets the host leave.
type LeaveGuard struct {
	mutex   sync.Mutex
	engaged bool
	warned  bool
}

// Hook is the session.GuardHook to install on the coordinator.
func (g *LeaveGuard) Hook(engaged bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.engaged = engaged
	g.warned = false
	slog.Debug("Navigation guard changed", "engaged", engaged)
}

// Engaged reports whether a session is recording.
func (g *LeaveGuard) Engaged() bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.engaged
}

// Interrupt records an interrupt and reports whether the host may exit.
func (g *LeaveGuard) Interrupt() bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.engaged || g.warned {
		return true
	}
	g.warned = true
	return false
}

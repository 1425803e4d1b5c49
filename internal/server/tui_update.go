// ABOUTME: TUI update helpers for server
// ABOUTME: Collects session and export state for the status display
package server

import (
	"sort"
	"time"
)

// status collects the current server state
func (s *Server) status() ServerStatus {
	s.sessionsMu.RLock()
	sessions := make([]SessionInfo, 0, len(s.sessions))
	now := time.Now()
	for _, sess := range s.sessions {
		sessions = append(sessions, SessionInfo{
			ID:          sess.ID,
			Slots:       sess.filled(),
			Subscribers: sess.subscribers(),
			Idle:        now.Sub(sess.idleSince()),
		})
	}
	s.sessionsMu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID < sessions[j].ID
	})

	return ServerStatus{
		Name:     s.config.Name,
		Port:     s.config.Port,
		Sessions: sessions,
		Exports:  s.exports.Load(),
		Failures: s.failures.Load(),
	}
}

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}
	s.tui.Update(s.status())
}

package api

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type liveSession struct {
	id        string
	startedAt time.Time
	cancel    context.CancelFunc
	fragments atomic.Int64
	stopping  atomic.Bool
}

// Registry tracks running sessions so that they can be listed and stopped.
// Sessions are forgotten as soon as they end.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*liveSession)}
}

func (r *Registry) add(id string, cancel context.CancelFunc, now time.Time) *liveSession {
	ls := &liveSession{id: id, startedAt: now, cancel: cancel}
	r.mu.Lock()
	r.sessions[id] = ls
	r.mu.Unlock()
	return ls
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Stop requests an operator stop. The session ends at its next step
// boundary.
func (r *Registry) Stop(id string) bool {
	r.mu.Lock()
	ls, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	ls.stopping.Store(true)
	ls.cancel()
	return true
}

// StopAll stops every live session and returns how many were signalled.
func (r *Registry) StopAll() int {
	r.mu.Lock()
	live := make([]*liveSession, 0, len(r.sessions))
	for _, ls := range r.sessions {
		live = append(live, ls)
	}
	r.mu.Unlock()
	for _, ls := range live {
		ls.stopping.Store(true)
		ls.cancel()
	}
	return len(live)
}

// List returns the live sessions, oldest first.
func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, ls := range r.sessions {
		out = append(out, SessionInfo{
			ID:        ls.id,
			StartedAt: ls.startedAt,
			Fragments: ls.fragments.Load(),
			Stopping:  ls.stopping.Load(),
		})
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b SessionInfo) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

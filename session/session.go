// Package session tracks live debugging sessions and caches their computed
// traces by source hash.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stepwise-dev/stepwise/debug"
	"github.com/stepwise-dev/stepwise/scope"
	"github.com/stepwise-dev/stepwise/store"
)

type Session struct {
	ID       string
	Source   string
	Debugger *debug.Debugger
	Created  time.Time
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	traces   store.Store
}

func NewManager(traces store.Store) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		traces:   traces,
	}
}

// Open registers a session for code under a fresh id. A cached trace for
// the same source hash restores the debugger without re-executing; a miss
// builds the debugger, deriving the variable whitelist statically, and
// writes the computed trace through to the store.
func (m *Manager) Open(code string) *Session {
	key := store.Key(code)
	cached := &store.TraceEntry{}
	found, err := m.traces.Get(key, cached)
	if err != nil {
		log.Warn().Err(err).Msg("trace cache read failed")
	}

	var dbg *debug.Debugger
	if found && err == nil {
		dbg = debug.Restore(code, cached.Snapshots)
	} else {
		dbg = debug.New(code, Whitelist(code))
		entry := &store.TraceEntry{
			Source:    code,
			Lines:     dbg.Lines(),
			Snapshots: dbg.Trace(),
		}
		if err := m.traces.Put(key, entry); err != nil {
			log.Warn().Err(err).Msg("trace cache write failed")
		}
	}

	sess := &Session{
		ID:       uuid.NewString(),
		Source:   code,
		Debugger: dbg,
		Created:  time.Now(),
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	log.Debug().
		Str("session", sess.ID).
		Bool("cached", found).
		Int("snapshots", len(dbg.Trace())).
		Msg("session opened")
	return sess
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// CachedTrace returns a previously computed trace for this exact source,
// if any session has produced one.
func (m *Manager) CachedTrace(code string) (*store.TraceEntry, bool) {
	entry := &store.TraceEntry{}
	found, err := m.traces.Get(store.Key(code), entry)
	if err != nil {
		log.Warn().Err(err).Msg("trace cache read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	return entry, true
}

// Whitelist derives the variable names a debugger should surface: every
// name the program statically binds, in sorted order.
func Whitelist(code string) []string {
	names := scope.AssignedNames(code)
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Package plugin implements Raider's named value carriers: the small
// set of building blocks ("plugins") that flows use to splice values
// into outgoing requests and to pull values back out of responses.
package plugin

import (
	"context"
	"sync"

	"github.com/raidersec/raider/response"
)

// Flags describes the capabilities a Plugin needs in order to produce
// its value.
type Flags uint8

const (
	// NeedsUserData means the plugin's value comes from the active user's
	// record (e.g. username, password).
	NeedsUserData Flags = 1 << iota
	// NeedsResponse means the plugin's value is extracted from an HTTP
	// response and can therefore be used as a Flow output.
	NeedsResponse
	// DependsOnOthers means the plugin derives its value from one or more
	// other plugins' current values rather than producing one itself.
	DependsOnOthers
)

// Has reports whether all bits in want are set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }

// Plugin is the parent type every named value carrier implements.
//
// A Plugin is an immutable template: it describes how a value is
// produced, never the value itself. The value lives in a per-session
// Store keyed by plugin Name, so the same Plugin can be referenced
// safely from concurrent sessions built off the same graph.
type Plugin interface {
	Name() string
	Flags() Flags
}

// InputResolver is implemented by plugins that can contribute a value to
// an outgoing request.
type InputResolver interface {
	Plugin
	// ResolveInput returns the plugin's current value, or ok=false if it
	// has none yet. It is never an error for a plugin to be absent; the
	// caller is responsible for logging the resolution warning.
	ResolveInput(ctx context.Context, user UserData, store *Store) (value string, ok bool)
}

// OutputExtractor is implemented by plugins that can be bound from an
// HTTP response.
type OutputExtractor interface {
	Plugin
	// ExtractOutput pulls the plugin's value out of resp, or ok=false if
	// the target (cookie, header, regex match, …) wasn't found.
	ExtractOutput(resp *response.Response, store *Store) (value string, ok bool)
}

// UserData is the active user's record, keyed by field name
// ("username", "password", plus anything extracted into it).
type UserData map[string]string

// Store is the per-session plugin-value store: the last known value for
// every plugin resolved or extracted so far in one authentication run.
// It is safe for concurrent use, though the engine itself runs
// single-threaded per session.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the stored value for name, if any.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Set records the value for name.
func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// All returns a snapshot copy of every stored value.
func (s *Store) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// LoadAll replaces the store's contents with data. Used by session
// persistence when reloading a dumped plugin-value store.
func (s *Store) LoadAll(data map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string, len(data))
	for k, v := range data {
		s.values[k] = v
	}
}

// ResolveValue is the canonical entry point for resolving a plugin as a
// request input. It defers to the plugin's own ResolveInput, falling
// back to a plain Store lookup for plugins that only ever receive a
// value through extraction or explicit assignment. Plugins that derive
// their value from other plugins (Alter, Combine, UrlParser, the auth
// header constructors) call ResolveValue on those plugins themselves
// from within their own ResolveInput; this function does not pre-resolve
// them, since doing so would re-invoke a non-idempotent dependency (e.g.
// Command) a second time per call.
func ResolveValue(ctx context.Context, p Plugin, user UserData, store *Store) (string, bool) {
	if r, ok := p.(InputResolver); ok {
		return r.ResolveInput(ctx, user, store)
	}
	return store.Get(p.Name())
}

// base holds the fields every plugin variant shares.
type base struct {
	name  string
	flags Flags
}

func (b *base) Name() string  { return b.name }
func (b *base) Flags() Flags  { return b.flags }

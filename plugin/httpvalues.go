package plugin

import (
	"context"
	"encoding/base64"

	"github.com/raidersec/raider/response"
)

// Cookie carries an HTTP cookie value. As a flow output it picks a
// response cookie by name; as a flow input it resolves to its last known
// value (either a literal baked in at construction, or whatever a prior
// extraction stored under its name).
type Cookie struct {
	base
	def *string
}

// NewCookie returns a Cookie plugin. value is an optional literal value
// known at graph-construction time; pass "" to leave it unset.
func NewCookie(name, value string) *Cookie {
	c := &Cookie{base: base{name: name, flags: NeedsResponse}}
	if value != "" {
		c.def = &value
	}
	return c
}

// ResolveInput implements InputResolver.
func (c *Cookie) ResolveInput(_ context.Context, _ UserData, store *Store) (string, bool) {
	if v, ok := store.Get(c.name); ok {
		return v, true
	}
	if c.def != nil {
		store.Set(c.name, *c.def)
		return *c.def, true
	}
	return "", false
}

// ExtractOutput implements OutputExtractor.
func (c *Cookie) ExtractOutput(resp *response.Response, store *Store) (string, bool) {
	v, ok := resp.Cookie(c.name)
	if !ok {
		return "", false
	}
	store.Set(c.name, v)
	return v, true
}

// Header carries an HTTP header value, analogous to Cookie.
type Header struct {
	base
	def *string
	// resolve, when set, overrides the default store-lookup behaviour.
	// Used by BasicAuthHeader/BearerAuthHeader.
	resolve func(ctx context.Context, user UserData, store *Store) (string, bool)
}

// NewHeader returns a Header plugin. value is an optional literal
// default, as with NewCookie.
func NewHeader(name, value string) *Header {
	h := &Header{base: base{name: name, flags: NeedsResponse}}
	if value != "" {
		h.def = &value
	}
	return h
}

// BasicAuthHeader returns a Header plugin producing a "Basic ..."
// Authorization value from a static username/password pair.
func BasicAuthHeader(username, password string) *Header {
	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	value := "Basic " + encoded
	return &Header{
		base: base{name: "Authorization", flags: DependsOnOthers},
		def:  &value,
	}
}

// BearerAuthHeader returns a Header plugin producing a "Bearer ..."
// Authorization value from another plugin's current value (typically an
// access-token plugin extracted from an earlier response).
func BearerAuthHeader(token Plugin) *Header {
	h := &Header{base: base{name: "Authorization", flags: DependsOnOthers}}
	h.resolve = func(ctx context.Context, user UserData, store *Store) (string, bool) {
		value, ok := ResolveValue(ctx, token, user, store)
		if !ok || value == "" {
			return "", false
		}
		return "Bearer " + value, true
	}
	return h
}

// ResolveInput implements InputResolver.
func (h *Header) ResolveInput(ctx context.Context, user UserData, store *Store) (string, bool) {
	if h.resolve != nil {
		return h.resolve(ctx, user, store)
	}
	if v, ok := store.Get(h.name); ok {
		return v, true
	}
	if h.def != nil {
		store.Set(h.name, *h.def)
		return *h.def, true
	}
	return "", false
}

// ExtractOutput implements OutputExtractor.
func (h *Header) ExtractOutput(resp *response.Response, store *Store) (string, bool) {
	v, ok := resp.HeaderValue(h.name)
	if !ok {
		return "", false
	}
	store.Set(h.name, v)
	return v, true
}

package plugin

import (
	"context"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// AlterFunc transforms a plugin's resolved value into a new value. It is
// only invoked when the parent plugin actually resolved to a value.
type AlterFunc func(value string) (string, bool)

// Alter wraps another plugin and post-processes its value.
type Alter struct {
	base
	parent      Plugin
	extra       Plugin // optional second dependency, e.g. Replace's "new" plugin
	fn          AlterFunc
	lastExtra   string
	lastExtraOK bool
}

// NewAlter returns an Alter plugin applying fn to parent's resolved
// value.
func NewAlter(parent Plugin, fn AlterFunc) *Alter {
	return &Alter{
		base:   base{name: parent.Name(), flags: DependsOnOthers},
		parent: parent,
		fn:     fn,
	}
}

// AlterPrepend returns an Alter plugin that prepends a literal string.
func AlterPrepend(parent Plugin, prefix string) *Alter {
	return NewAlter(parent, func(v string) (string, bool) { return prefix + v, true })
}

// AlterAppend returns an Alter plugin that appends a literal string.
func AlterAppend(parent Plugin, suffix string) *Alter {
	return NewAlter(parent, func(v string) (string, bool) { return v + suffix, true })
}

// AlterReplace returns an Alter plugin that replaces every occurrence of
// oldValue with either a literal string or another plugin's resolved
// value.
func AlterReplace(parent Plugin, oldValue string, newValue any) *Alter {
	a := &Alter{
		base:   base{name: parent.Name(), flags: DependsOnOthers},
		parent: parent,
	}
	if p, ok := newValue.(Plugin); ok {
		a.extra = p
		a.fn = func(v string) (string, bool) {
			replacement, ok := a.resolvedExtra()
			if !ok {
				return "", false
			}
			return strings.ReplaceAll(v, oldValue, replacement), true
		}
	} else {
		replacement, _ := newValue.(string)
		a.fn = func(v string) (string, bool) {
			return strings.ReplaceAll(v, oldValue, replacement), true
		}
	}
	return a
}

// resolvedExtra returns the replacement value ResolveInput stashed just
// before calling fn, since AlterReplace's closure has no other way to
// reach the value resolved for a.extra on this call.
func (a *Alter) resolvedExtra() (string, bool) {
	return a.lastExtra, a.lastExtraOK
}

// ResolveInput implements InputResolver.
func (a *Alter) ResolveInput(ctx context.Context, user UserData, store *Store) (string, bool) {
	value, ok := ResolveValue(ctx, a.parent, user, store)
	if !ok {
		return "", false
	}
	if a.extra != nil {
		a.lastExtra, a.lastExtraOK = ResolveValue(ctx, a.extra, user, store)
	}
	if a.fn == nil {
		return "", false
	}
	result, ok := a.fn(value)
	if !ok {
		return "", false
	}
	store.Set(a.name, result)
	return result, true
}

// Combine concatenates the string values of several items, each either a
// literal string or a plugin reference, in order.
type Combine struct {
	base
	items []any // string or Plugin
}

// NewCombine returns a Combine plugin over items.
func NewCombine(name string, items ...any) *Combine {
	return &Combine{base: base{name: name, flags: DependsOnOthers}, items: items}
}

// ResolveInput implements InputResolver.
func (c *Combine) ResolveInput(ctx context.Context, user UserData, store *Store) (string, bool) {
	var sb strings.Builder
	for _, item := range c.items {
		switch v := item.(type) {
		case string:
			sb.WriteString(v)
		case Plugin:
			value, ok := ResolveValue(ctx, v, user, store)
			if ok {
				sb.WriteString(value)
			}
		}
	}
	result := sb.String()
	store.Set(c.name, result)
	return result, true
}

// URLComponent names a piece of a URL UrlParser can extract.
type URLComponent string

const (
	URLScheme URLComponent = "scheme"
	URLHost   URLComponent = "host"
	URLPath   URLComponent = "path"
	URLQuery  URLComponent = "query"
)

// UrlParser extracts a single component (scheme/host/path/query) from
// another plugin's resolved value, which must parse as a URL.
type UrlParser struct {
	base
	parent    Plugin
	component URLComponent
}

// NewUrlParser returns a UrlParser plugin.
func NewUrlParser(name string, parent Plugin, component URLComponent) *UrlParser {
	return &UrlParser{
		base:      base{name: name, flags: DependsOnOthers},
		parent:    parent,
		component: component,
	}
}

// ResolveInput implements InputResolver.
func (u *UrlParser) ResolveInput(ctx context.Context, user UserData, store *Store) (string, bool) {
	raw, ok := ResolveValue(ctx, u.parent, user, store)
	if !ok {
		return "", false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		logrus.WithError(err).WithField("plugin", u.name).Warn("failed to parse url")
		return "", false
	}

	var value string
	switch u.component {
	case URLScheme:
		value = parsed.Scheme
	case URLHost:
		value = parsed.Host
	case URLPath:
		value = parsed.Path
	case URLQuery:
		value = parsed.RawQuery
	default:
		logrus.WithField("plugin", u.name).Warn("unknown url component")
		return "", false
	}
	store.Set(u.name, value)
	return value, true
}

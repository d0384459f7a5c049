package config

import (
	"fmt"
	"strings"

	"github.com/raidersec/raider/plugin"
)

// buildPlugins constructs every plugin in docs, resolving the
// cross-references (bearerauth's token, alter/urlparser/combine's
// parent plugins) in a second pass so declaration order in the YAML
// doesn't matter.
func buildPlugins(docs []PluginDoc) (map[string]plugin.Plugin, error) {
	registry := make(map[string]plugin.Plugin, len(docs))
	var deferred []PluginDoc

	for _, d := range docs {
		switch d.Type {
		case "alter", "combine", "urlparser", "bearerauth":
			deferred = append(deferred, d)
			continue
		}
		p, err := buildSimplePlugin(d)
		if err != nil {
			return nil, err
		}
		registry[d.Name] = p
	}

	// Dependent plugins may themselves depend on other dependent
	// plugins (e.g. an alter over a combine); iterate until a full
	// pass makes no progress.
	for len(deferred) > 0 {
		var remaining []PluginDoc
		progressed := false
		for _, d := range deferred {
			p, ok, err := buildDependentPlugin(d, registry)
			if err != nil {
				return nil, err
			}
			if !ok {
				remaining = append(remaining, d)
				continue
			}
			registry[d.Name] = p
			progressed = true
		}
		if !progressed {
			names := make([]string, len(remaining))
			for i, d := range remaining {
				names[i] = d.Name
			}
			return nil, fmt.Errorf("config: unresolved plugin dependencies for %v", names)
		}
		deferred = remaining
	}

	return registry, nil
}

func buildSimplePlugin(d PluginDoc) (plugin.Plugin, error) {
	switch d.Type {
	case "cookie":
		return plugin.NewCookie(d.Name, d.Value), nil
	case "header":
		return plugin.NewHeader(d.Name, d.Value), nil
	case "regex":
		if d.Pattern == "" {
			return nil, fmt.Errorf("config: plugin %q: regex requires a pattern", d.Name)
		}
		return plugin.NewRegex(d.Name, d.Pattern, d.Group), nil
	case "html":
		attrs, err := buildAttrMatches(d.Attrs)
		if err != nil {
			return nil, fmt.Errorf("config: plugin %q: %w", d.Name, err)
		}
		return plugin.NewHtml(d.Name, d.Tag, attrs, d.Extract), nil
	case "json":
		return plugin.NewJson(d.Name, d.Path), nil
	case "variable":
		return plugin.NewVariable(d.Name), nil
	case "prompt":
		return plugin.NewPrompt(d.Name), nil
	case "command":
		return plugin.NewCommand(d.Name, d.Cmd), nil
	case "empty":
		return plugin.NewEmpty(d.Name), nil
	case "basicauth":
		return plugin.BasicAuthHeader(d.Username, d.Password), nil
	default:
		return nil, fmt.Errorf("config: plugin %q: unknown type %q", d.Name, d.Type)
	}
}

func buildDependentPlugin(d PluginDoc, registry map[string]plugin.Plugin) (plugin.Plugin, bool, error) {
	switch d.Type {
	case "bearerauth":
		token, ok := registry[d.Token]
		if !ok {
			return nil, false, nil
		}
		return plugin.BearerAuthHeader(token), true, nil

	case "urlparser":
		parent, ok := registry[d.Parent]
		if !ok {
			return nil, false, nil
		}
		component, err := parseURLComponent(d.Component)
		if err != nil {
			return nil, false, fmt.Errorf("config: plugin %q: %w", d.Name, err)
		}
		return plugin.NewUrlParser(d.Name, parent, component), true, nil

	case "alter":
		parent, ok := registry[d.Parent]
		if !ok {
			return nil, false, nil
		}
		switch d.Op {
		case "prepend":
			return plugin.AlterPrepend(parent, d.Value), true, nil
		case "append":
			return plugin.AlterAppend(parent, d.Value), true, nil
		case "replace":
			var replacement any = d.New
			if ref, ok := lookupRef(d.New, registry); ok {
				replacement = ref
			}
			return plugin.AlterReplace(parent, d.Old, replacement), true, nil
		default:
			return nil, false, fmt.Errorf("config: plugin %q: unknown alter op %q", d.Name, d.Op)
		}

	case "combine":
		items := make([]any, 0, len(d.Items))
		for _, item := range d.Items {
			if ref, ok := lookupRef(item, registry); ok {
				items = append(items, ref)
				continue
			}
			if strings.HasPrefix(item, "$") {
				// referenced plugin not built yet, try again later
				return nil, false, nil
			}
			items = append(items, item)
		}
		return plugin.NewCombine(d.Name, items...), true, nil

	default:
		return nil, false, fmt.Errorf("config: plugin %q: unknown type %q", d.Name, d.Type)
	}
}

func buildAttrMatches(docs map[string]AttrDoc) (map[string]plugin.AttrMatch, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]plugin.AttrMatch, len(docs))
	for name, a := range docs {
		switch {
		case a.Exact != "":
			attrs[name] = plugin.AttrExact(a.Exact)
		case a.Regex != "":
			attrs[name] = plugin.AttrRegex(a.Regex)
		default:
			return nil, fmt.Errorf("attribute %q needs exact or regex", name)
		}
	}
	return attrs, nil
}

func parseURLComponent(s string) (plugin.URLComponent, error) {
	switch plugin.URLComponent(s) {
	case plugin.URLScheme, plugin.URLHost, plugin.URLPath, plugin.URLQuery:
		return plugin.URLComponent(s), nil
	default:
		return "", fmt.Errorf("unknown url component %q", s)
	}
}

// lookupRef resolves a "$name" reference against registry. Non-"$"
// strings are not references.
func lookupRef(s string, registry map[string]plugin.Plugin) (plugin.Plugin, bool) {
	if !strings.HasPrefix(s, "$") {
		return nil, false
	}
	p, ok := registry[s[1:]]
	return p, ok
}

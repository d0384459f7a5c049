package config

import (
	"fmt"

	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/request"
)

func buildRequests(docs map[string]RequestDoc, registry map[string]plugin.Plugin) (map[string]*request.Request, error) {
	requests := make(map[string]*request.Request, len(docs))
	for name, d := range docs {
		req, err := buildRequest(d, registry)
		if err != nil {
			return nil, fmt.Errorf("config: request %q: %w", name, err)
		}
		requests[name] = req
	}
	return requests, nil
}

func buildRequest(d RequestDoc, registry map[string]plugin.Plugin) (*request.Request, error) {
	cookies, err := resolvePluginRefs(d.Cookies, registry)
	if err != nil {
		return nil, err
	}
	headers, err := resolvePluginRefs(d.Headers, registry)
	if err != nil {
		return nil, err
	}

	req := &request.Request{
		Method:  d.Method,
		URL:     d.URL,
		Path:    d.Path,
		Cookies: cookies,
		Headers: headers,
	}

	if d.Body == nil {
		return req, nil
	}

	switch d.Body.Type {
	case "", "form":
		req.BodyEncoding = request.FormBody
		req.BodyMap = buildBodyMap(d.Body.Fields, registry)
	case "json":
		req.BodyEncoding = request.JSONBody
		req.BodyMap = buildBodyMap(d.Body.Fields, registry)
	case "raw":
		req.BodyEncoding = request.RawBody
		req.RawBody = d.Body.Raw
	default:
		return nil, fmt.Errorf("unknown body type %q", d.Body.Type)
	}
	return req, nil
}

func resolvePluginRefs(names []string, registry map[string]plugin.Plugin) ([]plugin.Plugin, error) {
	if len(names) == 0 {
		return nil, nil
	}
	plugins := make([]plugin.Plugin, 0, len(names))
	for _, name := range names {
		p, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown plugin %q", name)
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

// buildBodyMap turns a field map (key -> literal-or-"$ref" value) into
// the any/any map request.Request.BodyMap expects. Both keys and values
// may be "$name" plugin references; anything else is taken literally.
func buildBodyMap(fields map[string]string, registry map[string]plugin.Plugin) map[any]any {
	if len(fields) == 0 {
		return nil
	}
	body := make(map[any]any, len(fields))
	for key, value := range fields {
		var mapKey any = key
		if ref, ok := lookupRef(key, registry); ok {
			mapKey = ref
		}
		if ref, ok := lookupRef(value, registry); ok {
			body[mapKey] = ref
			continue
		}
		body[mapKey] = value
	}
	return body
}

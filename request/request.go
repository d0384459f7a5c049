// Package request lowers a Request template to a concrete HTTP message
// and performs the round trip, handing back a bound response.Response.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/response"
)

// Transport sends one already-built *http.Request and returns the raw
// *http.Response. *http.Client satisfies this directly; tests substitute
// a stub so request materialisation can be exercised without a live
// server or a cookie jar.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// BodyEncoding selects how BodyMap (or RawBody) is lowered onto the
// wire.
type BodyEncoding int

const (
	NoBody BodyEncoding = iota
	FormBody
	JSONBody
	RawBody
)

// Request is a read-only template for one HTTP exchange. Cookies and
// Headers are ordered lists of plugin references; BodyMap keys and
// values may each be either a literal string or a plugin.Plugin.
// Nothing here is mutated by Send: every resolution reads through to
// the caller-supplied plugin.Store.
type Request struct {
	Method string
	// URL, when set, is used verbatim. Otherwise Path is resolved
	// against the session's base URL.
	URL  string
	Path string

	Cookies []plugin.Plugin
	Headers []plugin.Plugin

	BodyEncoding BodyEncoding
	BodyMap      map[any]any
	RawBody      string
}

// Send materialises r against user/store, performs the round trip over
// transport, and returns the bound response. A plugin that cannot be
// resolved produces a logged warning rather than an error; the request
// is still sent.
func (r *Request) Send(ctx context.Context, transport Transport, baseURL string, user plugin.UserData, store *plugin.Store) (*response.Response, error) {
	target, err := r.resolveURL(baseURL)
	if err != nil {
		return nil, err
	}

	body, contentType, err := r.resolveBody(ctx, user, store)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	for _, h := range r.Headers {
		value, ok := plugin.ResolveValue(ctx, h, user, store)
		if !ok {
			logrus.WithField("header", h.Name()).Warn("resolution warning: header plugin has no value, omitted")
			continue
		}
		httpReq.Header.Set(h.Name(), value)
	}

	for _, c := range r.Cookies {
		value, ok := plugin.ResolveValue(ctx, c, user, store)
		if !ok {
			logrus.WithField("cookie", c.Name()).Warn("resolution warning: cookie plugin has no value, omitted")
			continue
		}
		httpReq.AddCookie(&http.Cookie{Name: c.Name(), Value: value})
	}

	httpResp, err := transport.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &response.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Cookies:    httpResp.Cookies(),
		Body:       data,
	}, nil
}

func (r *Request) resolveURL(baseURL string) (string, error) {
	if r.URL != "" {
		return r.URL, nil
	}
	if baseURL == "" {
		return "", fmt.Errorf("request path %q has no base url configured", r.Path)
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(r.Path, "/"), nil
}

func (r *Request) resolveBody(ctx context.Context, user plugin.UserData, store *plugin.Store) (io.Reader, string, error) {
	switch r.BodyEncoding {
	case NoBody:
		return nil, "", nil
	case RawBody:
		return strings.NewReader(r.RawBody), "", nil
	case FormBody:
		values := url.Values{}
		for k, v := range r.BodyMap {
			key, val, ok := resolveEntry(ctx, k, v, user, store)
			if !ok {
				continue
			}
			values.Set(key, val)
		}
		return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", nil
	case JSONBody:
		fields := make(map[string]string, len(r.BodyMap))
		for k, v := range r.BodyMap {
			key, val, ok := resolveEntry(ctx, k, v, user, store)
			if !ok {
				continue
			}
			fields[key] = val
		}
		encoded, err := json.Marshal(fields)
		if err != nil {
			return nil, "", fmt.Errorf("encoding json body: %w", err)
		}
		return strings.NewReader(string(encoded)), "application/json", nil
	default:
		return nil, "", fmt.Errorf("unknown body encoding %d", r.BodyEncoding)
	}
}

// resolveEntry resolves one BodyMap key/value pair. A key or value that
// is a plugin reference resolving to absent omits the entry entirely,
// rather than sending it with an empty string.
func resolveEntry(ctx context.Context, k, v any, user plugin.UserData, store *plugin.Store) (key, value string, ok bool) {
	key, keyOK := resolveItem(ctx, k, user, store)
	value, valOK := resolveItem(ctx, v, user, store)
	if !keyOK || !valOK {
		logrus.WithField("key", fmt.Sprint(k)).Warn("resolution warning: body entry omitted, plugin value absent")
		return "", "", false
	}
	return key, value, true
}

func resolveItem(ctx context.Context, item any, user plugin.UserData, store *plugin.Store) (string, bool) {
	switch v := item.(type) {
	case string:
		return v, true
	case plugin.Plugin:
		return plugin.ResolveValue(ctx, v, user, store)
	default:
		return "", false
	}
}

// Package session owns everything one authentication run mutates: the
// cookie jar, the plugin-value store, the active user, and the HTTP
// transport it sends requests through. A Session belongs to exactly one
// run; it is never shared across concurrent runs.
package session

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"

	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/user"
)

// Config carries the transport knobs a Session is built with. The zero
// value is the secure default: no proxy, certificates verified.
type Config struct {
	Proxy     string // optional upstream proxy URL
	Insecure  bool   // skip TLS certificate verification
	UserAgent string
}

// Session is the per-run state a Runner drives a graph against.
type Session struct {
	Store  *plugin.Store
	Client *http.Client
	User   *user.User

	jar *cookiejar.Jar
}

// New builds a Session for user, wiring an http.Client whose cookie jar
// uses the public suffix list so cookies scope correctly across
// subdomains (net/http's default jar has no such list).
func New(activeUser *user.User, cfg Config) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("session: building cookie jar: %w", err)
	}

	transport := http.DefaultTransport
	if cfg.Proxy != "" || cfg.Insecure {
		t, err := buildTransport(cfg)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	client := &http.Client{
		Jar:       jar,
		Transport: userAgentTransport{inner: transport, userAgent: cfg.UserAgent},
	}

	return &Session{
		Store:  plugin.NewStore(),
		Client: client,
		User:   activeUser,
		jar:    jar,
	}, nil
}

func buildTransport(cfg Config) (http.RoundTripper, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport, nil
	}
	t := base.Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("session: invalid proxy url: %w", err)
		}
		t.Proxy = http.ProxyURL(proxyURL)
	}
	if cfg.Insecure {
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		} else {
			t.TLSClientConfig.InsecureSkipVerify = true
		}
	}
	return t, nil
}

// userAgentTransport sets a fixed User-Agent on every outgoing request
// unless the request (or a Header plugin) already set one.
type userAgentTransport struct {
	inner     http.RoundTripper
	userAgent string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.inner.RoundTrip(req)
}

// UserData returns the active user's field map for plugin resolution.
func (s *Session) UserData() plugin.UserData {
	if s.User == nil {
		return plugin.UserData{}
	}
	return s.User.ToUserData()
}

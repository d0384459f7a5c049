package session

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// persistedCookie carries enough fields to reconstruct one jar entry
// against the URL it was observed on.
type persistedCookie struct {
	URL     string    `yaml:"url"`
	Name    string    `yaml:"name"`
	Value   string    `yaml:"value"`
	Path    string    `yaml:"path"`
	Domain  string    `yaml:"domain"`
	Expires time.Time `yaml:"expires"`
}

// cookieJarFilename and valueStoreFilename name the two files written
// per project directory: the cookie jar and the plugin-value store are
// kept separate so either can be inspected or edited on its own.
const (
	cookieJarFilename  = "cookies.yaml"
	valueStoreFilename = "values.yaml"
)

// Dump writes the session's cookie jar and plugin store to dir,
// creating it if necessary. targetURLs lists the URLs whose cookies
// should be captured from the jar (the jar itself exposes no "all
// cookies" enumeration).
func (s *Session) Dump(dir string, targetURLs []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("session: creating state dir: %w", err)
	}

	var cookies []persistedCookie
	for _, raw := range targetURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("session: invalid target url %q: %w", raw, err)
		}
		for _, c := range s.jar.Cookies(u) {
			cookies = append(cookies, persistedCookie{
				URL:     raw,
				Name:    c.Name,
				Value:   c.Value,
				Path:    c.Path,
				Domain:  c.Domain,
				Expires: c.Expires,
			})
		}
	}

	if err := writeYAML(filepath.Join(dir, cookieJarFilename), cookies); err != nil {
		return err
	}
	return writeYAML(filepath.Join(dir, valueStoreFilename), s.Store.All())
}

// Load reads the cookie jar and plugin-value store out of dir and
// merges them into the session.
func (s *Session) Load(dir string) error {
	var cookies []persistedCookie
	if err := readYAML(filepath.Join(dir, cookieJarFilename), &cookies); err != nil {
		return err
	}
	var values map[string]string
	if err := readYAML(filepath.Join(dir, valueStoreFilename), &values); err != nil {
		return err
	}

	s.Store.LoadAll(values)

	byURL := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		byURL[c.URL] = append(byURL[c.URL], &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
		})
	}
	for raw, cs := range byURL {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("session: invalid stored url %q: %w", raw, err)
		}
		s.jar.SetCookies(u, cs)
	}
	return nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("session: encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("session: writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("session: reading %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("session: decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

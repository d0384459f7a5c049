package config_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raidersec/raider/config"
	"github.com/raidersec/raider/raider"
	"github.com/raidersec/raider/session"
)

func writeProject(t *testing.T, baseURL string) string {
	dir := t.TempDir()
	doc := `
base_url: ` + baseURL + `

plugins:
  - name: sid
    type: cookie
  - name: username
    type: variable
  - name: password
    type: variable

requests:
  init:
    method: GET
    path: /login
  login:
    method: POST
    path: /login
    cookies: [sid]
    body:
      type: form
      fields:
        username: $username
        password: $password

flows:
  authentication:
    - name: init
      request: init
      outputs: [sid]
      operations:
        - next: login
    - name: login
      request: login
      operations:
        - http:
            status: 200
            action:
              - next: ""
            otherwise:
              - error: "bad credentials"

users:
  active: alice
  list:
    - username: alice
      password: secret
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.yaml"), []byte(doc), 0o644))
	return dir
}

func TestLoadBuildsRunnableGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			if r.Method == http.MethodGet {
				http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
				return
			}
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "alice", r.FormValue("username"))
			assert.Equal(t, "secret", r.FormValue("password"))
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	dir := writeProject(t, srv.URL)
	graph, users, err := config.Load(dir)
	require.NoError(t, err)
	require.Len(t, graph.Authentication, 2)

	s, err := session.New(users.Active(), session.Config{})
	require.NoError(t, err)

	runner := raider.NewRunner(graph, s)
	result, err := runner.Authenticate(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Stopped)

	value, ok := s.Store.Get("sid")
	require.True(t, ok)
	assert.Equal(t, "abc", value)
}

func TestLoadRejectsEmptyDirectory(t *testing.T) {
	_, _, err := config.Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadResolvesPluginReferenceBodyMapKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.FormValue("otp_code"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	doc := `
base_url: ` + srv.URL + `

plugins:
  - name: password
    type: variable
  - name: otp_field
    type: variable

requests:
  login:
    method: POST
    path: /login
    body:
      type: form
      fields:
        $otp_field: $password

flows:
  authentication:
    - name: login
      request: login
      operations:
        - next: ""

users:
  list:
    - username: alice
      password: secret
      data:
        otp_field: otp_code
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.yaml"), []byte(doc), 0o644))

	graph, users, err := config.Load(dir)
	require.NoError(t, err)

	s, err := session.New(users.Active(), session.Config{})
	require.NoError(t, err)

	runner := raider.NewRunner(graph, s)
	result, err := runner.Authenticate(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Stopped)
}

func TestLoadRejectsUnknownPluginReference(t *testing.T) {
	dir := t.TempDir()
	doc := `
base_url: https://example.com
requests:
  init:
    method: GET
    path: /
flows:
  authentication:
    - name: init
      request: init
      outputs: [nonexistent]
users:
  list:
    - username: alice
      password: secret
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.yaml"), []byte(doc), 0o644))
	_, _, err := config.Load(dir)
	assert.Error(t, err)
}

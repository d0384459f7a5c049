package fuzz_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raidersec/raider/flow"
	"github.com/raidersec/raider/fuzz"
	"github.com/raidersec/raider/operation"
	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/raider"
	"github.com/raidersec/raider/request"
	"github.com/raidersec/raider/session"
	"github.com/raidersec/raider/user"
)

func newTestSession(t *testing.T) *session.Session {
	s, err := session.New(user.New("alice", "secret", nil), session.Config{})
	require.NoError(t, err)
	return s
}

func TestLoadWordlistSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("admin\n\nroot\n"), 0o644))

	words, err := fuzz.LoadWordlist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "root"}, words)
}

func TestCasesAssignsUniqueIDs(t *testing.T) {
	cases := fuzz.Cases([]string{"a", "b"}, "orig", fuzz.Append)
	require.Len(t, cases, 2)
	assert.Equal(t, "origa", cases[0].Value)
	assert.Equal(t, "origb", cases[1].Value)
	assert.NotEqual(t, cases[0].ID, cases[1].ID)
}

func TestFunctionRunsOneCasePerWord(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("X-Session-Id"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sessionID := plugin.NewHeader("session_id", "")
	g := &raider.Graph{
		BaseURL: srv.URL,
		Functions: []*flow.Flow{
			flow.New("whoami", &request.Request{
				Method:  http.MethodGet,
				Path:    "/",
				Headers: []plugin.Plugin{sessionID},
			}, nil, nil),
		},
	}

	s := newTestSession(t)
	runner := raider.NewRunner(g, s)

	cases := fuzz.Cases([]string{"0", "1", "2"}, "token", fuzz.Append)
	reports, err := fuzz.Function(context.Background(), runner, "whoami", "session_id", cases)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for _, r := range reports {
		require.NoError(t, r.Err)
		assert.Equal(t, http.StatusOK, r.Response.StatusCode)
	}
	assert.Equal(t, []string{"token0", "token1", "token2"}, seen)
}

func TestAuthenticationFuzzesSingleStageAndReturns(t *testing.T) {
	var otps []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			w.WriteHeader(http.StatusOK)
		case "/mfa":
			otps = append(otps, r.FormValue("otp"))
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	otp := plugin.NewEmpty("otp")
	g := &raider.Graph{
		BaseURL: srv.URL,
		Authentication: []*flow.Flow{
			flow.New("login", &request.Request{Method: http.MethodGet, Path: "/login"}, nil,
				[]operation.Operation{operation.Goto("multi_factor")}),
			flow.New("multi_factor", &request.Request{
				Method:       http.MethodPost,
				Path:         "/mfa",
				BodyEncoding: request.FormBody,
				BodyMap:      map[any]any{"otp": otp},
			}, nil,
				[]operation.Operation{operation.Goto("")}),
		},
	}

	s := newTestSession(t)
	runner := raider.NewRunner(g, s)

	cases := fuzz.Cases([]string{"1111", "2222", "3333"}, "", fuzz.Replace)
	reports, err := fuzz.Authentication(context.Background(), runner, "multi_factor", "otp", cases)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for _, r := range reports {
		require.NoError(t, r.Err)
	}
	assert.Equal(t, []string{"1111", "2222", "3333"}, otps)
}

func TestAuthenticationUnreachableTargetErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := &raider.Graph{
		BaseURL: srv.URL,
		Authentication: []*flow.Flow{
			flow.New("login", &request.Request{Method: http.MethodGet, Path: "/"}, nil,
				[]operation.Operation{operation.Goto("")}),
		},
	}

	s := newTestSession(t)
	runner := raider.NewRunner(g, s)

	_, err := fuzz.Authentication(context.Background(), runner, "never_reached", "otp", fuzz.Cases([]string{"x"}, "", nil))
	assert.Error(t, err)
}

package request_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/request"
)

func TestSendResolvesPathAgainstBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req := &request.Request{Method: http.MethodGet, Path: "/login"}
	resp, err := req.Send(context.Background(), http.DefaultClient, srv.URL, nil, plugin.NewStore())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/login", gotPath)
}

func TestSendAbsoluteURLIgnoresBase(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	req := &request.Request{Method: http.MethodGet, URL: srv.URL + "/absolute"}
	_, err := req.Send(context.Background(), http.DefaultClient, "https://ignored.example", nil, plugin.NewStore())
	require.NoError(t, err)
	assert.Equal(t, "/absolute", gotPath)
}

func TestSendHeadersAndCookiesFromPlugins(t *testing.T) {
	var gotHeader, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		if c, err := r.Cookie("sid"); err == nil {
			gotCookie = c.Value
		}
	}))
	defer srv.Close()

	store := plugin.NewStore()
	store.Set("sid", "abc123")

	req := &request.Request{
		Method:  http.MethodGet,
		Path:    "/",
		Headers: []plugin.Plugin{plugin.NewHeader("X-Api-Key", "secret")},
		Cookies: []plugin.Plugin{plugin.NewCookie("sid", "")},
	}
	_, err := req.Send(context.Background(), http.DefaultClient, srv.URL, nil, store)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, "abc123", gotCookie)
}

func TestSendUnresolvableHeaderIsOmittedNotFatal(t *testing.T) {
	var sawHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get("Authorization") != ""
	}))
	defer srv.Close()

	req := &request.Request{
		Method:  http.MethodGet,
		Path:    "/",
		Headers: []plugin.Plugin{plugin.NewHeader("Authorization", "")},
	}
	_, err := req.Send(context.Background(), http.DefaultClient, srv.URL, nil, plugin.NewStore())
	require.NoError(t, err)
	assert.False(t, sawHeader)
}

func TestSendFormBodyOmitsAbsentPluginValue(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	store := plugin.NewStore()
	store.Set("username", "alice")

	req := &request.Request{
		Method:       http.MethodPost,
		Path:         "/login",
		BodyEncoding: request.FormBody,
		BodyMap: map[any]any{
			"username": plugin.NewVariable("username"),
			"otp":      plugin.NewEmpty("otp"), // never set, must be omitted
		},
	}
	_, err := req.Send(context.Background(), http.DefaultClient, srv.URL, plugin.UserData{"username": "alice"}, store)
	require.NoError(t, err)
	assert.Equal(t, "username=alice", gotBody)
}

func TestSendJSONBody(t *testing.T) {
	var gotBody, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	req := &request.Request{
		Method:       http.MethodPost,
		Path:         "/login",
		BodyEncoding: request.JSONBody,
		BodyMap:      map[any]any{"username": "alice"},
	}
	_, err := req.Send(context.Background(), http.DefaultClient, srv.URL, nil, plugin.NewStore())
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"username":"alice"}`, gotBody)
}

func TestSendMissingBaseURLAndPathErrors(t *testing.T) {
	req := &request.Request{Method: http.MethodGet, Path: "/login"}
	_, err := req.Send(context.Background(), http.DefaultClient, "", nil, plugin.NewStore())
	assert.Error(t, err)
}

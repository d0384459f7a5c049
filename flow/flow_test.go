package flow_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raidersec/raider/flow"
	"github.com/raidersec/raider/operation"
	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/request"
)

func TestRunBindsOutputsAndEvaluatesOperations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "sid=abc; Path=/")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"accessToken":"TOK"}`))
	}))
	defer srv.Close()

	store := plugin.NewStore()
	sid := plugin.NewCookie("sid", "")
	token := plugin.NewRegex("access_token", `"accessToken":"([^"]+)"`, 0)

	f := flow.New(
		"login",
		&request.Request{Method: http.MethodGet, Path: "/login"},
		[]plugin.Plugin{sid, token},
		[]operation.Operation{operation.NewHttp(200, []operation.Operation{operation.Goto("done")}, []operation.Operation{operation.NewError("unexpected status")})},
	)

	resp, verdict := f.Run(context.Background(), http.DefaultClient, srv.URL, nil, store)
	require.NotNil(t, resp)
	assert.Equal(t, operation.Next, verdict.Kind)
	assert.Equal(t, "done", verdict.Stage)

	sidValue, ok := store.Get("sid")
	require.True(t, ok)
	assert.Equal(t, "abc", sidValue)

	tokenValue, ok := store.Get("access_token")
	require.True(t, ok)
	assert.Equal(t, "TOK", tokenValue)
}

func TestRunWithNoOperationsContinues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := flow.New("ping", &request.Request{Method: http.MethodGet, Path: "/"}, nil, nil)
	resp, verdict := f.Run(context.Background(), http.DefaultClient, srv.URL, nil, plugin.NewStore())
	require.NotNil(t, resp)
	assert.Equal(t, operation.Continue, verdict.Kind)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunSendFailureIsFailVerdict(t *testing.T) {
	f := flow.New("broken", &request.Request{Method: http.MethodGet, Path: "/"}, nil, nil)
	_, verdict := f.Run(context.Background(), http.DefaultClient, "", nil, plugin.NewStore())
	assert.Equal(t, operation.Fail, verdict.Kind)
	require.Error(t, verdict.Err)
}

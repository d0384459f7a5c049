package operation_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raidersec/raider/operation"
	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/response"
)

func TestExecuteStopsAtFirstDecision(t *testing.T) {
	ops := []operation.Operation{
		operation.NewPrint("hi"),
		operation.Goto("login"),
		operation.NewError("never reached"),
	}
	v := operation.Execute(context.Background(), ops, nil, nil, plugin.NewStore())
	assert.Equal(t, operation.Next, v.Kind)
	assert.Equal(t, "login", v.Stage)
}

func TestExecuteEmptyListContinues(t *testing.T) {
	v := operation.Execute(context.Background(), nil, nil, nil, plugin.NewStore())
	assert.Equal(t, operation.Continue, v.Kind)
}

func TestNextStageEmptyNameStops(t *testing.T) {
	v := operation.Goto("").Run(context.Background(), nil, nil, plugin.NewStore())
	assert.Equal(t, operation.Stop, v.Kind)
}

func TestHttpBranchesOnStatus(t *testing.T) {
	op := operation.NewHttp(200,
		[]operation.Operation{operation.Goto("ok")},
		[]operation.Operation{operation.Goto("bad")},
	)
	resp := &response.Response{StatusCode: 200}
	v := op.Run(context.Background(), resp, nil, plugin.NewStore())
	assert.Equal(t, operation.Next, v.Kind)
	assert.Equal(t, "ok", v.Stage)

	resp2 := &response.Response{StatusCode: 400}
	v2 := op.Run(context.Background(), resp2, nil, plugin.NewStore())
	assert.Equal(t, "bad", v2.Stage)
}

func TestHttpWithoutResponseFails(t *testing.T) {
	op := operation.NewHttp(200, nil, nil)
	v := op.Run(context.Background(), nil, nil, plugin.NewStore())
	assert.Equal(t, operation.Fail, v.Kind)
	require.Error(t, v.Err)
}

func TestGrepBranchesOnBodyMatch(t *testing.T) {
	op := operation.NewGrep("TWO_FA_REQUIRED",
		[]operation.Operation{operation.Goto("multi_factor")},
		[]operation.Operation{operation.Goto("done")},
	)
	resp := &response.Response{Body: []byte("please provide TWO_FA_REQUIRED code")}
	v := op.Run(context.Background(), resp, nil, plugin.NewStore())
	assert.Equal(t, "multi_factor", v.Stage)

	resp2 := &response.Response{Body: []byte("all good")}
	v2 := op.Run(context.Background(), resp2, nil, plugin.NewStore())
	assert.Equal(t, "done", v2.Stage)
}

func TestErrorOperationFails(t *testing.T) {
	v := operation.NewError("bad credentials").Run(context.Background(), nil, nil, plugin.NewStore())
	assert.Equal(t, operation.Fail, v.Kind)
	assert.EqualError(t, v.Err, "bad credentials")
}

func TestSaveWritesPluginValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.txt")

	store := plugin.NewStore()
	store.Set("access_token", "TOK")
	tok := plugin.NewEmpty("access_token")

	v := operation.NewSave(path, tok).Run(context.Background(), nil, nil, store)
	require.Equal(t, operation.Continue, v.Kind)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "TOK\n", string(data))
}

func TestSaveAppendDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")

	store := plugin.NewStore()
	require.Equal(t, operation.Continue, operation.SaveAppend(path, "first").Run(context.Background(), nil, nil, store).Kind)
	require.Equal(t, operation.Continue, operation.SaveAppend(path, "second").Run(context.Background(), nil, nil, store).Kind)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestSaveSkipsWriteWhenContextCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := operation.NewSave(path, "value").Run(ctx, nil, nil, plugin.NewStore())
	assert.Equal(t, operation.Fail, v.Kind)
	require.Error(t, v.Err)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveBodyWritesResponseText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "body.txt")
	resp := &response.Response{Body: []byte("raw body")}

	v := operation.SaveBody(path).Run(context.Background(), resp, nil, plugin.NewStore())
	require.Equal(t, operation.Continue, v.Kind)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "raw body\n", string(data))
}

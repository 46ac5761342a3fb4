package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crudkit/internal/config"
	"github.com/roach88/crudkit/internal/resource"
)

// newRecordOptions returns options for a fresh database with the shared
// test resources and deterministic item keys.
func newRecordOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format: format,
		Config: config.Config{
			DBPath:        filepath.Join(t.TempDir(), "records.db"),
			ResourcesFile: filepath.Join("..", "..", "testdata", "resources.yaml"),
		},
		Keys: resource.NewFixedKeys("item-1", "item-2", "item-3"),
	}
}

// runRecord executes one record command and returns its stdout.
func runRecord(t *testing.T, opts *RootOptions, stdin string, args ...string) (string, error) {
	t.Helper()
	var cmd *cobra.Command
	for _, c := range NewRecordCommands(opts) {
		if c.Name() == args[0] {
			cmd = c
		}
	}
	require.NotNil(t, cmd, "no command %q", args[0])

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args[1:])
	err := cmd.Execute()
	return buf.String(), err
}

type recordResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeRecord(t *testing.T, out string) recordResponse {
	t.Helper()
	var resp recordResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func TestRecordLifecycle(t *testing.T) {
	opts := newRecordOptions(t, "json")

	out, err := runRecord(t, opts, "", "create", "items", `{"name":"alpha","count":1}`)
	require.NoError(t, err)
	resp := decodeRecord(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.JSONEq(t, `{"id":"item-1","name":"alpha","count":1}`, string(resp.Data))

	out, err = runRecord(t, opts, `{"name":"beta","count":2}`, "create", "items", "-")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"item-2","name":"beta","count":2}`, string(decodeRecord(t, out).Data))

	out, err = runRecord(t, opts, "", "get", "items", "item-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"item-1","name":"alpha","count":1}`, string(decodeRecord(t, out).Data))

	out, err = runRecord(t, opts, "", "update", "items", "item-1", `{"count":5}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"item-1","name":"alpha","count":5}`, string(decodeRecord(t, out).Data))

	out, err = runRecord(t, opts, "", "list", "items", "order=count desc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[
		{"id":"item-1","name":"alpha","count":5},
		{"id":"item-2","name":"beta","count":2}
	],"count":2}`, string(decodeRecord(t, out).Data))

	out, err = runRecord(t, opts, "", "distinct", "items", "name")
	require.NoError(t, err)
	assert.JSONEq(t, `["alpha","beta"]`, string(decodeRecord(t, out).Data))

	out, err = runRecord(t, opts, "", "delete", "items", "item-2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"item-2","name":"beta","count":2}`, string(decodeRecord(t, out).Data))

	out, err = runRecord(t, opts, "", "get", "items", "item-2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp = decodeRecord(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "not_found", resp.Error.Code)
	assert.Equal(t, "Resource not found.", resp.Error.Message)
}

func TestRecordList(t *testing.T) {
	opts := newRecordOptions(t, "json")
	for _, body := range []string{`{"name":"alpha","count":1}`, `{"name":"beta","count":2}`, `{"name":"alphabet","count":2}`} {
		_, err := runRecord(t, opts, "", "create", "items", body)
		require.NoError(t, err)
	}

	tests := []struct {
		name      string
		params    []string
		wantCount int64
		wantIDs   []string
	}{
		{"all", nil, 3, []string{"item-1", "item-2", "item-3"}},
		{"search", []string{"search=ALPHA"}, 2, []string{"item-1", "item-3"}},
		{"filter", []string{"count=2"}, 2, []string{"item-2", "item-3"}},
		{"search and filter", []string{"search=alpha", "count=2"}, 1, []string{"item-3"}},
		{"paged", []string{"order=name", "pageSize=1", "page=2"}, 3, []string{"item-3"}},
		{"first value wins", []string{"count=1", "count=2"}, 1, []string{"item-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"list", "items"}, tt.params...)
			out, err := runRecord(t, opts, "", args...)
			require.NoError(t, err)

			var page struct {
				Items []struct {
					ID string `json:"id"`
				} `json:"items"`
				Count int64 `json:"count"`
			}
			require.NoError(t, json.Unmarshal(decodeRecord(t, out).Data, &page))
			assert.Equal(t, tt.wantCount, page.Count)

			ids := make([]string, len(page.Items))
			for i, item := range page.Items {
				ids[i] = item.ID
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestRecordErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantMsg  string
		wantExit int
	}{
		{
			name:     "unknown resource",
			args:     []string{"get", "widgets", "1"},
			wantCode: "not_found",
			wantMsg:  "Resource not found.",
			wantExit: ExitFailure,
		},
		{
			name:     "malformed body",
			args:     []string{"create", "items", `{"name":`},
			wantCode: "invalid_input",
			wantMsg:  "Expected JSON body",
			wantExit: ExitFailure,
		},
		{
			name:     "non-object body",
			args:     []string{"create", "items", `[1,2]`},
			wantCode: "invalid_input",
			wantMsg:  "Expected JSON body",
			wantExit: ExitFailure,
		},
		{
			name:     "null update body",
			args:     []string{"update", "items", "item-1", `null`},
			wantCode: "invalid_input",
			wantMsg:  "Empty update body",
			wantExit: ExitFailure,
		},
		{
			name:     "update missing entity",
			args:     []string{"update", "items", "nope", `{"count":1}`},
			wantCode: "not_found",
			wantMsg:  "Resource not found.",
			wantExit: ExitFailure,
		},
		{
			name:     "delete missing entity",
			args:     []string{"delete", "items", "nope"},
			wantCode: "not_found",
			wantExit: ExitFailure,
		},
		{
			name:     "distinct outside allow-list",
			args:     []string{"distinct", "items", "count"},
			wantCode: "not_found",
			wantExit: ExitFailure,
		},
		{
			name:     "malformed list parameter",
			args:     []string{"list", "items", "search"},
			wantCode: ErrCodeInvalidArgs,
			wantExit: ExitCommandError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := newRecordOptions(t, "json")
			out, err := runRecord(t, opts, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			resp := decodeRecord(t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Error.Message)
			}
		})
	}
}

func TestRecordIntKeys(t *testing.T) {
	opts := newRecordOptions(t, "json")

	out, err := runRecord(t, opts, "", "create", "notes", `{"body":"first","pinned":true,"meta":{"tags":["a"]}}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"body":"first","pinned":true,"meta":{"tags":["a"]}}`, string(decodeRecord(t, out).Data))

	out, err = runRecord(t, opts, "", "get", "notes", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"body":"first","pinned":true,"meta":{"tags":["a"]}}`, string(decodeRecord(t, out).Data))

	out, err = runRecord(t, opts, "", "list", "notes", "pinned=true")
	require.NoError(t, err)
	assert.Contains(t, string(decodeRecord(t, out).Data), `"count":1`)
}

func TestRecordTextOutput(t *testing.T) {
	opts := newRecordOptions(t, "text")

	out, err := runRecord(t, opts, "", "create", "items", `{"name":"alpha","count":1}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"item-1","name":"alpha","count":1}`, out)

	out, err = runRecord(t, opts, "", "get", "items", "missing")
	require.Error(t, err)
	assert.Equal(t, "Error [not_found]: Resource not found.\n", out)
}

func TestRecordRequiresDatabase(t *testing.T) {
	opts := &RootOptions{Format: "json"}
	_, err := runRecord(t, opts, "", "get", "test", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database path is required")
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"search=a=b", "order=name desc", "page=", "page=3"})
	require.NoError(t, err)
	assert.Equal(t, "a=b", params["search"])
	assert.Equal(t, "name desc", params["order"])
	assert.Equal(t, "", params["page"])

	_, err = parseParams([]string{"=x"})
	require.Error(t, err)
	var argsErr *ArgsError
	assert.ErrorAs(t, err, &argsErr)
}

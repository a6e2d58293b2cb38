package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type seenRequest struct {
	auth        string
	contentType string
	operations  string
	body        string
}

// recorder keeps the last request the test server received.
type recorder struct {
	mu   sync.Mutex
	last seenRequest
}

func (r *recorder) snapshot() seenRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func newTestServer(t *testing.T, reply string, rec *recorder) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		seen := &rec.last
		seen.auth = r.Header.Get("Authorization")
		seen.contentType = r.Header.Get("Content-Type")
		if strings.HasPrefix(seen.contentType, "multipart/form-data") {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			seen.operations = r.FormValue("operations")
		} else {
			b, _ := io.ReadAll(r.Body)
			seen.body = string(b)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(server.Close)
	return server
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GRAPHQL_UPLOAD_ENDPOINT", "")
	t.Setenv("GRAPHQL_UPLOAD_TOKEN", "")
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_plainQuery(t *testing.T) {
	var seen recorder
	server := newTestServer(t, `{"data":{"hello":"world"}}`, &seen)

	out, err := execute(t, "--endpoint", server.URL, "--token", "tok",
		"-q", `query($n: Int) { hello(n: $n) }`, "--var", "n=2")
	require.NoError(t, err)
	assert.Equal(t, `{"hello":"world"}`+"\n", out)
	got := seen.snapshot()
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, int64(2), gjson.Get(got.body, "variables.n").Int())
}

func TestRootCmd_upload(t *testing.T) {
	var seen recorder
	server := newTestServer(t, `{"data":{"upload":{"id":"1","name":"a.txt"}}}`, &seen)
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha"), 0o644))

	out, err := execute(t, "--endpoint", server.URL,
		"-q", `mutation($file: Upload!) { upload(file: $file) { id name } }`,
		"--file", "file="+path, "--select", "upload.name")
	require.NoError(t, err)
	assert.Equal(t, `"a.txt"`+"\n", out)
	got := seen.snapshot()
	assert.Empty(t, got.auth)
	assert.True(t, strings.HasPrefix(got.contentType, "multipart/form-data"))
	assert.Equal(t, gjson.Null, gjson.Get(got.operations, "variables.file").Type)
}

func TestRootCmd_configFile(t *testing.T) {
	var seen recorder
	server := newTestServer(t, `{"data":{"ok":true}}`, &seen)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("endpoint: "+server.URL+"\ntoken: from-file\n"), 0o644))
	queryPath := filepath.Join(dir, "q.graphql")
	require.NoError(t, os.WriteFile(queryPath, []byte(`{ ok }`), 0o644))

	out, err := execute(t, "--config", cfgPath, "--query-file", queryPath)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`+"\n", out)
	assert.Equal(t, "Bearer from-file", seen.snapshot().auth)
}

func TestRootCmd_errors(t *testing.T) {
	var seen recorder
	server := newTestServer(t, `{"data":null,"errors":[{"message":"denied"}]}`, &seen)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing endpoint",
			args:    []string{"-q", "{ a }"},
			wantErr: "endpoint is required",
		},
		{
			name:    "missing query",
			args:    []string{"--endpoint", server.URL},
			wantErr: "one of --query or --query-file is required",
		},
		{
			name:    "graphql errors",
			args:    []string{"--endpoint", server.URL, "-q", "{ a }"},
			wantErr: "denied",
		},
		{
			name:    "upload variable not attached",
			args:    []string{"--endpoint", server.URL, "-q", `mutation($file: Upload!) { a(f: $file) }`},
			wantErr: "No file proper variable found in variables.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRootCmd_selectMissingPath(t *testing.T) {
	var seen recorder
	server := newTestServer(t, `{"data":{"a":1}}`, &seen)

	_, err := execute(t, "--endpoint", server.URL, "-q", "{ a }", "--select", "b.c")
	assert.ErrorContains(t, err, "no such path")
}

package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/go-graphql-upload"
)

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{
		"name=gopher",
		"count=3",
		"ok=true",
		`tags=["a","b"]`,
		"code=007",
		"empty=",
		"eq=a=b",
	})
	require.NoError(t, err)
	assert.Equal(t, graphql.Variables{
		"name":  "gopher",
		"count": float64(3),
		"ok":    true,
		"tags":  []any{"a", "b"},
		"code":  "007",
		"empty": "",
		"eq":    "a=b",
	}, vars)

	_, err = parseVars([]string{"novalue"})
	assert.ErrorContains(t, err, "want key=value")
	_, err = parseVars([]string{"=x"})
	assert.Error(t, err)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAttachFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.json", "{}")

	t.Run("single file", func(t *testing.T) {
		vars := graphql.Variables{}
		opened, err := attachFiles(vars, `mutation($file: Upload!) { x(f: $file) }`, []string{"file=" + a})
		require.NoError(t, err)
		defer opened.Close()

		f, ok := vars["file"].(*graphql.File)
		require.True(t, ok, "got %T", vars["file"])
		assert.Equal(t, "a.txt", f.Name)
		content, err := io.ReadAll(f.Reader)
		require.NoError(t, err)
		assert.Equal(t, "alpha", string(content))
	})

	t.Run("list declaration with one file", func(t *testing.T) {
		vars := graphql.Variables{}
		opened, err := attachFiles(vars, `mutation($files: [Upload!]!) { x(f: $files) }`, []string{"files=" + a})
		require.NoError(t, err)
		defer opened.Close()

		files, ok := vars["files"].([]*graphql.File)
		require.True(t, ok, "got %T", vars["files"])
		assert.Len(t, files, 1)
	})

	t.Run("repeated key", func(t *testing.T) {
		vars := graphql.Variables{}
		opened, err := attachFiles(vars, `query { x }`, []string{"docs=" + a, "docs=" + b})
		require.NoError(t, err)
		defer opened.Close()

		files, ok := vars["docs"].([]*graphql.File)
		require.True(t, ok)
		require.Len(t, files, 2)
		assert.Equal(t, "a.txt", files[0].Name)
		assert.Equal(t, "b.json", files[1].Name)
		assert.Equal(t, "application/json", files[1].ContentType)
		assert.Len(t, opened, 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := attachFiles(graphql.Variables{}, `query { x }`, []string{"file=" + a, "other=" + filepath.Join(dir, "nope")})
		assert.ErrorContains(t, err, "--file other")
	})
}

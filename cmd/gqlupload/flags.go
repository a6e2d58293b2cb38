package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/llehouerou/go-graphql-upload"
	"github.com/llehouerou/go-graphql-upload/internal/uploadvar"
)

func splitPair(flag, pair string) (string, string, error) {
	key, value, ok := strings.Cut(pair, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("--%s %q: want key=value", flag, pair)
	}
	return key, value, nil
}

// parseVars turns key=value pairs into variables. Values that are valid JSON
// keep their JSON type; anything else is a string.
func parseVars(pairs []string) (graphql.Variables, error) {
	vars := make(graphql.Variables, len(pairs))
	for _, pair := range pairs {
		key, raw, err := splitPair("var", pair)
		if err != nil {
			return nil, err
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		vars[key] = v
	}
	return vars, nil
}

// openedFiles tracks the files opened for --file flags.
type openedFiles []*os.File

func (o openedFiles) Close() {
	for _, f := range o {
		_ = f.Close()
	}
}

// attachFiles opens the key=path pairs and stores them in vars. A key is
// sent as a file list when the query declares it as a list upload or when
// it is given more than once.
func attachFiles(vars graphql.Variables, query string, pairs []string) (openedFiles, error) {
	var (
		opened openedFiles
		order  []string
		byKey  = map[string][]*graphql.File{}
	)
	for _, pair := range pairs {
		key, path, err := splitPair("file", pair)
		if err != nil {
			opened.Close()
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			opened.Close()
			return nil, fmt.Errorf("--file %s: %w", key, err)
		}
		opened = append(opened, f)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], &graphql.File{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Reader:      f,
		})
	}

	decl, declared := uploadvar.Find(query)
	for _, key := range order {
		files := byKey[key]
		if len(files) > 1 || (declared && decl.Multiple && decl.Name == key) {
			vars[key] = files
			continue
		}
		vars[key] = files[0]
	}
	return opened, nil
}

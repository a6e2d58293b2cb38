package graphql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/llehouerou/go-graphql-upload/internal/uploadvar"
	"github.com/llehouerou/go-graphql-upload/types"
)

// Body is an encoded request body.
type Body struct {
	// ContentType is application/json for plain bodies and
	// multipart/form-data with its boundary for uploads.
	ContentType string
	Data        []byte
	Multipart   bool

	// Operations and Map are the JSON operations envelope and the file map
	// of a multipart body. Both are nil for plain bodies.
	Operations []byte
	Map        map[string][]string
}

type operations struct {
	Query     string    `json:"query"`
	Variables Variables `json:"variables"`
}

// FormBody encodes a request for query and variables.
//
// When the query declares an upload variable ($name: Upload, or a list
// [Upload] / [Upload!]), the body is a multipart form following the GraphQL
// multipart request specification: an operations field, a map field and one
// numbered part per file. Otherwise the body is the plain JSON
// {query, variables} envelope.
//
// Only the first upload declaration is honored; list declarations are
// looked for before single ones. A declared upload variable that is missing
// or not a file handle (or not a list of them) fails with ErrNoVariable.
func FormBody(query string, variables Variables) (*Body, error) {
	ops, err := json.Marshal(operations{
		Query:     query,
		Variables: withFilePlaceholder(variables),
	})
	if err != nil {
		return nil, newCodeError(ErrJsonEncode, err)
	}

	decl, ok := uploadvar.Find(query)
	if !ok {
		data, err := json.Marshal(operations{Query: query, Variables: variables})
		if err != nil {
			return nil, newCodeError(ErrJsonEncode, err)
		}
		return &Body{ContentType: types.ContentTypeJSON, Data: data}, nil
	}

	var (
		files   []*File
		fileMap map[string][]string
	)
	if decl.Multiple {
		list, ok := asFiles(variables[decl.Name])
		if !ok {
			return nil, newNoVariableError(decl.Name)
		}
		files = list
		fileMap = FileMap(len(list))
	} else {
		f, ok := asFile(variables[decl.Name])
		if !ok {
			return nil, newNoVariableError(decl.Name)
		}
		files = []*File{f}
		fileMap = map[string][]string{"0": {types.SingleFilePath}}
	}

	return multipartBody(ops, fileMap, files)
}

// FileMap returns the map field of a list upload of n files:
// {"0": ["variables.files.0"], "1": ["variables.files.1"], ...}.
func FileMap(n int) map[string][]string {
	out := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		key := strconv.Itoa(i)
		out[key] = []string{types.MultipleFilesPathPrefix + key}
	}
	return out
}

// withFilePlaceholder returns a copy of variables with the file placeholder
// slot set to null. The caller's map is left untouched.
func withFilePlaceholder(variables Variables) Variables {
	out := make(Variables, len(variables)+1)
	for k, v := range variables {
		out[k] = v
	}
	out[types.FilePlaceholderKey] = nil
	return out
}

func multipartBody(ops []byte, fileMap map[string][]string, files []*File) (*Body, error) {
	mapJSON, err := json.Marshal(fileMap)
	if err != nil {
		return nil, newCodeError(ErrJsonEncode, err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(types.BoundaryPrefix + uuid.NewString()); err != nil {
		return nil, newCodeError(ErrRequestError, err)
	}
	if err := w.WriteField(types.OperationsField, string(ops)); err != nil {
		return nil, newCodeError(ErrRequestError, err)
	}
	if err := w.WriteField(types.MapField, string(mapJSON)); err != nil {
		return nil, newCodeError(ErrRequestError, err)
	}
	for i, f := range files {
		if err := writeFilePart(w, strconv.Itoa(i), f); err != nil {
			return nil, newCodeError(ErrRequestError, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, newCodeError(ErrRequestError, err)
	}

	return &Body{
		ContentType: w.FormDataContentType(),
		Data:        buf.Bytes(),
		Multipart:   true,
		Operations:  ops,
		Map:         fileMap,
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(w *multipart.Writer, field string, f *File) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f.Reader); err != nil {
		return fmt.Errorf("read file %q: %w", f.Name, err)
	}
	return nil
}

package graphql

import "io"

// Variables maps variable names referenced by a query to their values:
// numbers, strings, booleans, or file handles (*File, File, or a slice of
// them for list uploads).
type Variables map[string]any

// File is a file handle sent as an Upload variable. The caller owns the
// reader; the client only reads from it and never closes it.
type File struct {
	// Name is sent as the filename of the multipart part.
	Name string
	// ContentType of the part. application/octet-stream when empty.
	ContentType string
	Reader      io.Reader
}

// NewFile returns a file handle named name reading its content from r.
func NewFile(name string, r io.Reader) *File {
	return &File{Name: name, Reader: r}
}

// MarshalJSON renders the file as null: upload slots are null in the
// operations envelope and filled in by the server from the multipart parts.
func (File) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// asFile reports whether v is a usable file handle.
func asFile(v any) (*File, bool) {
	switch f := v.(type) {
	case *File:
		if f == nil || f.Reader == nil {
			return nil, false
		}
		return f, true
	case File:
		if f.Reader == nil {
			return nil, false
		}
		return &f, true
	default:
		return nil, false
	}
}

// asFiles reports whether v is a list of usable file handles. Every element
// must be a file handle.
func asFiles(v any) ([]*File, bool) {
	switch list := v.(type) {
	case []*File:
		out := make([]*File, 0, len(list))
		for _, item := range list {
			f, ok := asFile(item)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	case []File:
		out := make([]*File, 0, len(list))
		for i := range list {
			f, ok := asFile(list[i])
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	case []any:
		out := make([]*File, 0, len(list))
		for _, item := range list {
			f, ok := asFile(item)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	default:
		return nil, false
	}
}

package types

// Wire-level constants shared by the request builder, the transport and the
// CLI. Centralizing these prevents typos and makes refactoring safer.
const (
	// ContentTypeJSON is sent as Accept on every request and as Content-Type
	// on plain (non-upload) requests.
	ContentTypeJSON = "application/json"

	// OperationsField is the multipart field carrying the JSON
	// {query, variables} envelope.
	OperationsField = "operations"

	// MapField is the multipart field mapping part indexes to variable
	// paths.
	MapField = "map"

	// SingleFilePath is the map path a single upload is substituted into.
	SingleFilePath = "variables.file"

	// MultipleFilesPathPrefix prefixes the map path of each element of a
	// file array ("variables.files.0", "variables.files.1", ...).
	MultipleFilesPathPrefix = "variables.files."

	// FilePlaceholderKey is the variables key nulled in the operations
	// envelope of every request.
	FilePlaceholderKey = "file"

	// BoundaryPrefix prefixes generated multipart boundaries.
	BoundaryPrefix = "gqlupload-"

	// BearerPrefix prefixes the token in the Authorization header.
	BearerPrefix = "Bearer "
)

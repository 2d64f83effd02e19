package topology

import "errors"

// Error kinds. Call sites wrap them with context; use errors.Is to classify.
var (
	ErrFileAccess = errors.New("file access error")
	ErrParse      = errors.New("parse error")
	ErrReference  = errors.New("reference error")
	ErrSchema     = errors.New("schema error")
	ErrFormat     = errors.New("format error")
)

// oops codes attached alongside the kinds.
const (
	CodeFileAccess = "file_access_error"
	CodeParse      = "parse_error"
	CodeReference  = "reference_error"
	CodeSchema     = "schema_error"
	CodeFormat     = "format_error"
)

var kindNames = []struct {
	err  error
	name string
}{
	{ErrFileAccess, "FileAccessError"},
	{ErrParse, "ParseError"},
	{ErrReference, "ReferenceError"},
	{ErrSchema, "SchemaError"},
	{ErrFormat, "FormatError"},
}

// KindOf names the kind of err, or returns "" when err is not one of the kinds.
func KindOf(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

package registry

import "reflect"

// File is the Data-kind field type for spec.md §4.10's "byte-array and
// file (BLOB ...)" case: a field whose persisted form is a BLOB column,
// but whose application-facing value is a path on disk rather than an
// in-memory []byte. ValueCodec.DecodeData materializes the BLOB contents
// to OriginalPath if that path's directory is writable, or to a fallback
// path under os.TempDir() otherwise (spec.md §9's open question, resolved
// in DESIGN.md).
type File struct {
	// OriginalPath is the application-supplied path to persist from (on
	// save) or restore to (on load), if writable.
	OriginalPath string
	// FallbackPath is set by ValueCodec.DecodeData when OriginalPath's
	// directory was not writable and the contents were written to a
	// temp path instead.
	FallbackPath string
}

var fileType = reflect.TypeOf(File{})

func isFileType(t reflect.Type) bool { return t == fileType }

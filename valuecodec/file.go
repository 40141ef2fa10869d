package valuecodec

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/syssam/persistcore/registry"
)

var fileGoType = reflect.TypeOf(registry.File{})

// encodeFile reads the file at f.OriginalPath and returns its contents as
// the BLOB transport value (spec.md §4.10: "on file: persist contents").
func encodeFile(f registry.File) ([]byte, error) {
	b, err := os.ReadFile(f.OriginalPath)
	if err != nil {
		return nil, fmt.Errorf("valuecodec: read file %q: %w", f.OriginalPath, err)
	}
	return b, nil
}

// decodeFile writes blob to originalPath if its directory is writable,
// or to a fallback path under os.TempDir() otherwise (the open-question
// resolution recorded in DESIGN.md), and returns the resulting File
// value plus whether the fallback path was used.
func decodeFile(blob []byte, originalPath string) (registry.File, error, bool) {
	dir := filepath.Dir(originalPath)
	if dirWritable(dir) {
		if err := os.WriteFile(originalPath, blob, 0o600); err != nil {
			return registry.File{}, fmt.Errorf("valuecodec: write file %q: %w", originalPath, err), false
		}
		return registry.File{OriginalPath: originalPath}, nil, false
	}

	fallback := filepath.Join(os.TempDir(), filepath.Base(originalPath))
	if err := os.WriteFile(fallback, blob, 0o600); err != nil {
		return registry.File{}, fmt.Errorf("valuecodec: write fallback file %q: %w", fallback, err), false
	}
	return registry.File{OriginalPath: originalPath, FallbackPath: fallback}, nil, true
}

func dirWritable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	probe := filepath.Join(dir, ".persistcore-write-probe")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Writer places exported files under an output directory and applies the
// overwrite policy.
type Writer struct {
	outputDir string
	overwrite bool
}

// NewWriter creates a writer rooted at outputDir. When overwrite is false
// existing files are left alone.
func NewWriter(outputDir string, overwrite bool) *Writer {
	return &Writer{
		outputDir: outputDir,
		overwrite: overwrite,
	}
}

// Path maps a stored asset path to a location under the output directory.
func (w *Writer) Path(rel string) string {
	return filepath.Join(w.outputDir, sanitizePath(rel))
}

// ShouldWrite reports whether path may be written: always when
// overwriting, otherwise only if nothing exists there yet.
func (w *Writer) ShouldWrite(path string) bool {
	if w.overwrite {
		return true
	}
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

// Prepare creates the parent directory of path.
func (w *Writer) Prepare(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return nil
}

// WriteFile writes data to the stored path rel. It returns the output
// path and whether anything was written.
func (w *Writer) WriteFile(rel string, data []byte) (string, bool, error) {
	path := w.Path(rel)
	if !w.ShouldWrite(path) {
		slog.Debug("Skipping existing file", "path", path)
		return path, false, nil
	}
	if err := w.Prepare(path); err != nil {
		return path, false, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return path, false, fmt.Errorf("writing file %s: %w", path, err)
	}
	slog.Debug("Wrote file", "path", path, "bytes", len(data))
	return path, true, nil
}

// sanitizePath turns a stored asset path into a relative path that stays
// inside the output directory. Stored paths use either separator.
func sanitizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")

	var parts []string
	for _, p := range strings.Split(path, "/") {
		switch p {
		case "", ".", "..":
			continue
		}
		if strings.HasSuffix(p, ":") {
			continue
		}
		parts = append(parts, p)
	}
	return filepath.Join(parts...)
}

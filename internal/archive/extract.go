package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extract unpacks the zip at path into dir and returns the number of files
// written. Entries escaping dir are rejected.
func Extract(path, dir string) (int, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	root := filepath.Clean(dir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, err
	}

	files := 0
	for _, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return files, fmt.Errorf("archive entry %q escapes extraction directory", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, err
			}
			continue
		}
		if f.Mode()&os.ModeType != 0 {
			continue
		}
		if err := extractFile(f, target); err != nil {
			return files, fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		files++
	}
	return files, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FindPluginRoot locates the plugin inside an extraction directory. A single
// top-level directory holding one of the marker files wins; otherwise dir
// itself if it holds a marker; otherwise the first top-level directory, or
// dir when there is none.
func FindPluginRoot(dir string, markers ...string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dir
	}

	var subdirs []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != "__MACOSX" {
			subdirs = append(subdirs, filepath.Join(dir, e.Name()))
		}
	}

	if len(subdirs) == 1 && hasMarker(subdirs[0], markers) {
		return subdirs[0]
	}
	if hasMarker(dir, markers) {
		return dir
	}
	if len(subdirs) > 0 {
		return subdirs[0]
	}
	return dir
}

func hasMarker(dir string, markers []string) bool {
	for _, m := range markers {
		if info, err := os.Stat(filepath.Join(dir, m)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

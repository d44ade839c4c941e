// Package archive builds distributable plugin archives and unpacks downloaded
// ones. Output files are written beside their destination and moved into
// place, so a destination never holds a partial archive.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
)

// ErrEmptyArchive is returned when packing produced no usable file.
var ErrEmptyArchive = errors.New("archive is empty")

// PackResult describes a written archive.
type PackResult struct {
	Path  string
	Files int
	Size  int64
}

// Excluder decides which relative paths stay out of an archive. A pattern
// excludes a path equal to it or nested under it; patterns with wildcards are
// matched as globs against the path and each of its parent directories.
type Excluder struct {
	literal []string
	globs   []glob.Glob
}

// NewExcluder compiles exclusion patterns. Patterns use forward slashes.
func NewExcluder(patterns []string) (*Excluder, error) {
	e := &Excluder{}
	for _, p := range patterns {
		p = strings.Trim(filepath.ToSlash(strings.TrimSpace(p)), "/")
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[{") {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
			}
			e.globs = append(e.globs, g)
			continue
		}
		e.literal = append(e.literal, p)
	}
	return e, nil
}

// Excluded reports whether rel (slash separated) is excluded.
func (e *Excluder) Excluded(rel string) bool {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	for _, p := range e.literal {
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	if len(e.globs) == 0 {
		return false
	}
	for prefix := rel; prefix != ""; prefix = parent(prefix) {
		for _, g := range e.globs {
			if g.Match(prefix) {
				return true
			}
		}
	}
	return false
}

func parent(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return ""
}

// Pack writes every regular file under src that is not excluded into a zip
// at dest and reports the number of file entries.
func Pack(src, dest string, excludes []string) (PackResult, error) {
	ex, err := NewExcluder(excludes)
	if err != nil {
		return PackResult{}, err
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return PackResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(absDest), 0o755); err != nil {
		return PackResult{}, fmt.Errorf("creating output directory: %w", err)
	}

	tmpPath := absDest + ".tmp." + uuid.NewString()
	files, err := writeZip(src, tmpPath, absDest, ex)
	if err == nil && files == 0 {
		err = fmt.Errorf("%w: no files left in %s after exclusions", ErrEmptyArchive, src)
	}
	if err != nil {
		os.Remove(tmpPath)
		return PackResult{}, err
	}

	if err := moveFile(tmpPath, absDest); err != nil {
		os.Remove(tmpPath)
		return PackResult{}, err
	}

	info, err := os.Stat(absDest)
	if err != nil {
		return PackResult{}, fmt.Errorf("%w: %v", ErrEmptyArchive, err)
	}
	if info.Size() == 0 {
		os.Remove(absDest)
		return PackResult{}, ErrEmptyArchive
	}
	return PackResult{Path: absDest, Files: files, Size: info.Size()}, nil
}

func writeZip(src, tmpPath, skip string, ex *Excluder) (int, error) {
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	files := 0

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if ex.Excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == skip || strings.HasPrefix(abs, skip+".tmp.") {
			return nil
		}

		if err := addFile(zw, path, rel, d); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil {
		zw.Close()
		return 0, fmt.Errorf("packing %s: %w", src, err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finalizing archive: %w", err)
	}
	if err := out.Sync(); err != nil {
		return 0, err
	}
	return files, nil
}

func addFile(zw *zip.Writer, path, rel string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = rel
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// List returns the file entry names of a zip archive.
func List(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			names = append(names, f.Name)
		}
	}
	return names, nil
}

// Package archive reads zipped table packs.
package archive

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// WalkFunc is called for each file in archive visited by Walk. If an error
// is returned, processing stops.
type WalkFunc func(file *zip.File) error

// Walk calls walkFn for every regular file of r whose name starts with
// prefix. Entries with absolute paths or ".." components fail the walk.
func Walk(r *zip.Reader, prefix string, walkFn WalkFunc) error {
	for _, f := range r.File {
		name := f.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, prefix) {
			if err := walkFn(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// Pack is an opened table pack: a zip archive with table documents. It is
// an fs.FS so it could be served by fetch.FSHandler.
type Pack struct {
	fs.FS

	rc   *zip.ReadCloser
	name string
}

// Open opens archive and checks every entry name.
func Open(name string) (*Pack, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("unable to open table pack: %w", err)
	}
	if err := Walk(&rc.Reader, "", func(*zip.File) error { return nil }); err != nil {
		rc.Close()
		return nil, fmt.Errorf("table pack '%s': %w", name, err)
	}
	return &Pack{FS: &rc.Reader, rc: rc, name: name}, nil
}

// Tables returns names of table documents (json files without extension)
// found under dir in the order they are stored.
func (p *Pack) Tables(dir string) []string {
	prefix := strings.Trim(dir, "/")
	if len(prefix) > 0 {
		prefix += "/"
	}
	var names []string
	_ = Walk(&p.rc.Reader, prefix, func(f *zip.File) error {
		rest := strings.TrimPrefix(f.Name, prefix)
		if !strings.Contains(rest, "/") && path.Ext(rest) == ".json" {
			names = append(names, strings.TrimSuffix(rest, ".json"))
		}
		return nil
	})
	return names
}

// Name returns archive file name.
func (p *Pack) Name() string {
	return p.name
}

// Close releases the archive file, the pack is unusable afterwards.
func (p *Pack) Close() error {
	return p.rc.Close()
}

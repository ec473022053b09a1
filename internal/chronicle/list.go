package chronicle

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// List returns the chronicle paths under the store root, slash-separated and
// sorted. Side-car and temporary files are not included.
func (s *Store) List() ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.root, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && file == s.root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), Suffix) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.root, file)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, ioError("list", s.root, err)
	}
	slices.Sort(out)
	return out, nil
}

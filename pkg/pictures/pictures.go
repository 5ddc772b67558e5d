package pictures

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Extension is the file extension of profile pictures.
const Extension = ".jpeg"

// Lookup finds the profile picture of a person by full name.
type Lookup interface {
	Find(fullName string) (path string, ok bool)
}

// Directory looks up "<dir>/<full name>.jpeg" files.
type Directory struct {
	fs  afero.Fs
	dir string
}

// NewDirectory creates a lookup rooted at dir on the given filesystem.
func NewDirectory(fsys afero.Fs, dir string) *Directory {
	return &Directory{fs: fsys, dir: dir}
}

// Path returns where the picture of fullName is expected.
func (d *Directory) Path(fullName string) string {
	return filepath.Join(d.dir, fullName+Extension)
}

// Find reports the picture path if the file exists.
func (d *Directory) Find(fullName string) (string, bool) {
	path := d.Path(fullName)
	ok, err := afero.Exists(d.fs, path)
	if err != nil || !ok {
		return path, false
	}
	return path, true
}

// Names walks the directory and returns the full names that have a
// picture, skipping hidden directories.
func (d *Directory) Names() ([]string, error) {
	var names []string

	err := afero.Walk(d.fs, d.dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != d.dir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(path) == Extension {
			names = append(names, strings.TrimSuffix(info.Name(), Extension))
		}

		return nil
	})

	return names, err
}

package volumeio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HeaderExt is the extension given to header files written by this package
const HeaderExt = ".yaml"

// BaseName returns the file name of path without directory or extension
func BaseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// UniqueOutputPath returns the first <dir>/Cropped_<base>_<n>.yaml, n >= 1,
// for which no file exists yet
func UniqueOutputPath(dir, base string) string {
	for n := 1; ; n++ {
		path := filepath.Join(dir, fmt.Sprintf("Cropped_%s_%d%s", base, n, HeaderExt))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
	}
}

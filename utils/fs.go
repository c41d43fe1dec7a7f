package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FileOperations provides file system utilities
type FileOperations struct{}

// NewFileOperations creates a new FileOperations instance
func NewFileOperations() *FileOperations {
	return &FileOperations{}
}

// EnsureDir creates the parent directory of path if it doesn't exist
func (f *FileOperations) EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// FileExists checks if a file exists
func (f *FileOperations) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetFileSize returns the size of a file
func (f *FileOperations) GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// CollectFiles expands directories into the regular files beneath them.
// Plain paths are kept as given so missing files surface as upload failures.
func (f *FileOperations) CollectFiles(paths []string, recursive bool) ([]string, error) {
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			files = append(files, path)
			continue
		}

		if !recursive {
			return nil, fmt.Errorf("%s is a directory (use --recursive)", path)
		}

		var found []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}

		sort.Strings(found)
		files = append(files, found...)
	}

	return files, nil
}

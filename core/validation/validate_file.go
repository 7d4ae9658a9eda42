package validation

import (
	"fmt"
	"os"
)

// FileExistsError indicates a file does not exist with a descriptive message
type FileExistsError struct {
	Path    string
	Message string
}

func (e *FileExistsError) Error() string {
	return e.Message
}

// CheckFileExists checks if a file exists at the given path.
// This is a pure function that only checks existence, no side effects.
//
// Returns nil if the file exists, or a *FileExistsError describing the failure.
func CheckFileExists(path string) error {
	if path == "" {
		return &FileExistsError{
			Path:    path,
			Message: "file path cannot be empty",
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileExistsError{
				Path:    path,
				Message: fmt.Sprintf("file not found: %s", path),
			}
		}
		return &FileExistsError{
			Path:    path,
			Message: fmt.Sprintf("error checking file %s: %v", path, err),
		}
	}

	if info.IsDir() {
		return &FileExistsError{
			Path:    path,
			Message: fmt.Sprintf("path is a directory, not a file: %s", path),
		}
	}

	return nil
}

// CheckDirWritable verifies that dir exists (creating it if needed) and that
// a file can be created inside it. The probe file is removed immediately.
//
// The data directory must be writable before any pipeline stage runs: extract
// writes the JSON dataset there, load creates the SQLite file, serve appends
// chat history.
func CheckDirWritable(dir string) error {
	if dir == "" {
		return fmt.Errorf("directory path cannot be empty")
	}

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	case err != nil:
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("path is a file, not a directory: %s", dir)
	}

	probe, err := os.CreateTemp(dir, ".write_probe*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	return nil
}

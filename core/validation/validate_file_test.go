package validation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckFileExists(t *testing.T) {
	tmpDir := t.TempDir()

	// Create a test file
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	// Create a test directory
	testDir := filepath.Join(tmpDir, "testdir")
	if err := os.Mkdir(testDir, 0755); err != nil {
		t.Fatalf("Failed to create test dir: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name:    "existing file",
			path:    testFile,
			wantErr: false,
		},
		{
			name:    "non-existent file",
			path:    filepath.Join(tmpDir, "nonexistent.txt"),
			wantErr: true,
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
		},
		{
			name:    "directory instead of file",
			path:    testDir,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFileExists(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("CheckFileExists(%q) expected error but got nil", tt.path)
					return
				}
				if _, ok := err.(*FileExistsError); !ok {
					t.Errorf("CheckFileExists(%q) expected *FileExistsError, got %T", tt.path, err)
				}
			} else {
				if err != nil {
					t.Errorf("CheckFileExists(%q) unexpected error: %v", tt.path, err)
				}
			}
		})
	}
}

func TestCheckDirWritable(t *testing.T) {
	t.Run("existing writable directory", func(t *testing.T) {
		if err := CheckDirWritable(t.TempDir()); err != nil {
			t.Errorf("CheckDirWritable() unexpected error: %v", err)
		}
	})

	t.Run("missing directory is created", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data", "processed")
		if err := CheckDirWritable(dir); err != nil {
			t.Fatalf("CheckDirWritable() unexpected error: %v", err)
		}
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory to be created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected created path to be a directory")
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if err := CheckDirWritable(""); err == nil {
			t.Error("CheckDirWritable(\"\") expected error, got nil")
		}
	})

	t.Run("path is a file", func(t *testing.T) {
		filePath := filepath.Join(t.TempDir(), "occupied")
		if err := os.WriteFile(filePath, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
		if err := CheckDirWritable(filePath); err == nil {
			t.Error("CheckDirWritable() expected error when path is a file, got nil")
		}
	})

	t.Run("probe file is removed", func(t *testing.T) {
		dir := t.TempDir()
		if err := CheckDirWritable(dir); err != nil {
			t.Fatalf("CheckDirWritable() unexpected error: %v", err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("Failed to read dir: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected no leftover probe files, found %d entries", len(entries))
		}
	})
}

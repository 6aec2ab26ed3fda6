package fetchkit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// fileExists reports whether path names an existing regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// separators are the path separators a remote name must not contain on this OS.
var separators = func() string {
	if filepath.Separator == '/' {
		return "/"
	}
	return "/" + string(filepath.Separator)
}()

// resolveLocalPath joins a remote entry name onto localDir and refuses names
// that would land outside of it.
func resolveLocalPath(localDir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, separators) {
		return "", fmt.Errorf("refusing unsafe entry name %q", name)
	}

	absolutePath, err := filepath.Abs(filepath.Join(localDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return absolutePath, nil
}

// saveLocalFile writes reader to localPath, creating parent directories and
// truncating any existing file.
func saveLocalFile(localPath string, reader io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	destFile, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}

	written, err := io.Copy(destFile, reader)
	if err != nil {
		_ = destFile.Close()
		return written, fmt.Errorf("failed to copy file contents: %w", err)
	}

	if err := destFile.Close(); err != nil {
		return written, fmt.Errorf("failed to close destination file: %w", err)
	}

	return written, nil
}

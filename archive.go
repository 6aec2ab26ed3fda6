package fetchkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
)

const archiveExtension = ".zip"

// ExtractArchives extracts every .zip file directly under targetDir (not
// recursive, in lexical order) into outputDir and returns the archives it
// processed. The first archive that cannot be read or fails a checksum stops
// the run with ErrCorruptArchive; later archives are left untouched.
func ExtractArchives(ctx context.Context, targetDir, outputDir string) ([]string, error) {
	if info, err := os.Stat(targetDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: the directory %q does not exist", ErrConfig, targetDir)
	}
	if outputDir == "" {
		return nil, fmt.Errorf("%w: output directory is required", ErrConfig)
	}

	archives, err := findArchives(targetDir)
	if err != nil {
		return nil, err
	}
	log.Info("Found archives", "dir", targetDir, "archives", len(archives))

	extracted := make([]string, 0, len(archives))
	for _, archive := range archives {
		if err := ctx.Err(); err != nil {
			return extracted, fmt.Errorf("extraction interrupted: %w", err)
		}
		if err := extractArchive(archive, outputDir); err != nil {
			return extracted, err
		}
		extracted = append(extracted, archive)
		log.Info("Extracted contents", "archive", filepath.Base(archive), "dir", outputDir)
	}
	return extracted, nil
}

func findArchives(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var archives []string
	for _, d := range dirEntries {
		if d.IsDir() || !strings.HasSuffix(d.Name(), archiveExtension) {
			continue
		}
		archives = append(archives, filepath.Join(dir, d.Name()))
	}
	return archives, nil
}

func extractArchive(archivePath, outputDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return fmt.Errorf("failed to open %s: %w", archivePath, err)
		}
		return fmt.Errorf("%w: %s: %w", ErrCorruptArchive, archivePath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, f := range r.File {
		if err := extractEntry(f, outputDir); err != nil {
			if errors.Is(err, ErrCorruptArchive) {
				return fmt.Errorf("%s: %w", archivePath, err)
			}
			return fmt.Errorf("failed to extract %s from %s: %w", f.Name, archivePath, err)
		}
	}
	return nil
}

func extractEntry(f *zip.File, outputDir string) error {
	dest, err := entryDestination(outputDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorruptArchive, f.Name, err)
	}
	defer src.Close()

	perm := f.Mode().Perm()
	if !f.Mode().IsRegular() || perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, entryReader{name: f.Name, r: src})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// entryDestination resolves name under outputDir, rejecting absolute paths
// and entries that climb out of it.
func entryDestination(outputDir, name string) (string, error) {
	cleaned := filepath.FromSlash(name)
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", fmt.Errorf("%w: illegal absolute path %q", ErrCorruptArchive, name)
	}

	dest := filepath.Join(outputDir, cleaned)
	rel, err := filepath.Rel(outputDir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: illegal path %q", ErrCorruptArchive, name)
	}
	return dest, nil
}

// entryReader marks read failures, including checksum mismatches, as archive
// corruption so they can be told apart from write failures.
type entryReader struct {
	name string
	r    io.Reader
}

func (e entryReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w: %s: %w", ErrCorruptArchive, e.name, err)
	}
	return n, err
}

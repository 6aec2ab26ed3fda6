package fetchkit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
)

// SyncDirectory connects with cfg, downloads every regular file directly
// under remoteDir into localDir and closes the connection.
//
// Per-file failures are reported in the results and do not stop the run; use
// Failures to collect them. The returned error covers configuration,
// connection, listing and stat failures, which abort the whole run.
func SyncDirectory(ctx context.Context, cfg Config, creds *Credentials, remoteDir, localDir string) ([]TransferResult, error) {
	if remoteDir == "" || localDir == "" {
		return nil, fmt.Errorf("%w: remote and local directories are required", ErrConfig)
	}

	conn, err := Connect(cfg, creds)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("Failed to close connection", "host", cfg.Host, "err", err)
			return
		}
		log.Info("Closed connection", "host", cfg.Host)
	}()

	return Synchronize(ctx, conn, remoteDir, localDir)
}

// Synchronize runs the directory download over an open connector. Every
// entry is stat'ed before any download starts; a stat failure aborts the run.
func Synchronize(ctx context.Context, conn Connector, remoteDir, localDir string) ([]TransferResult, error) {
	log.Info("Listing remote directory", "dir", remoteDir)
	names, err := conn.List(remoteDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", remoteDir, err)
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sync interrupted: %w", err)
		}

		remotePath := path.Join(remoteDir, name)
		entry, err := conn.Stat(remotePath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", remotePath, err)
		}
		entry.Name = name
		entries = append(entries, entry)
	}

	files := regularFiles(entries)
	log.Info("Found files to download", "files", len(files), "skipped", len(entries)-len(files))

	results := make([]TransferResult, 0, len(files))
	if len(files) == 0 {
		return results, nil
	}

	if err := os.MkdirAll(localDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local directory %s: %w", localDir, err)
	}

	for _, entry := range files {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("sync interrupted: %w", err)
		}

		localPath, err := resolveLocalPath(localDir, entry.Name)
		if err != nil {
			results = append(results, TransferResult{RemotePath: entry.Path, Err: err})
			log.Error("Skipping remote file", "remote", entry.Path, "err", err)
			continue
		}
		results = append(results, transfer(conn, entry, localPath))
	}

	return results, nil
}

// regularFiles returns the regular-file entries in their original order.
func regularFiles(entries []Entry) []Entry {
	files := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Type != EntryTypeFile {
			log.Debug("Skipping non-regular entry", "remote", entry.Path)
			continue
		}
		files = append(files, entry)
	}
	return files
}

// transfer downloads one entry and checks that the local file exists
// afterwards.
func transfer(conn Connector, entry Entry, localPath string) TransferResult {
	result := TransferResult{
		RemotePath: entry.Path,
		LocalPath:  localPath,
	}

	written, err := conn.Download(entry.Path, localPath)
	result.Size = written
	if err != nil {
		result.Err = fmt.Errorf("failed to download %s: %w", entry.Path, err)
		log.Error("The download was unsuccessful", "remote", entry.Path, "local", localPath, "err", err)
		return result
	}
	log.Info("Got remote file", "remote", entry.Path, "local", localPath, "size", humanize.Bytes(uint64(written)))

	if !fileExists(localPath) {
		result.Err = fmt.Errorf("%w: %s does not exist after download", ErrVerification, localPath)
		log.Error("The download was unsuccessful, the local file does not exist", "local", localPath)
		return result
	}

	result.OK = true
	log.Info("The download was successful", "local", localPath)
	return result
}

// Failures joins the errors of every failed result, or returns nil when all
// transfers succeeded.
func Failures(results []TransferResult) error {
	var merr *multierror.Error
	for _, r := range results {
		if r.OK {
			continue
		}
		err := r.Err
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrVerification, r.RemotePath)
		}
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}

// GetFile connects with cfg, downloads remotePath to localPath and closes
// the connection.
func GetFile(ctx context.Context, cfg Config, creds *Credentials, remotePath, localPath string) (TransferResult, error) {
	if remotePath == "" || localPath == "" {
		return TransferResult{}, fmt.Errorf("%w: remote and local paths are required", ErrConfig)
	}

	conn, err := Connect(cfg, creds)
	if err != nil {
		return TransferResult{}, err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("Failed to close connection", "host", cfg.Host, "err", err)
			return
		}
		log.Info("Closed connection", "host", cfg.Host)
	}()

	return DownloadFile(ctx, conn, remotePath, localPath)
}

// DownloadFile downloads a single remote file. Symlinks are followed. It
// fails with ErrNotFound, without transferring anything, when remotePath is
// missing or is not a regular file, and with ErrVerification when the local file is missing
// after the transfer.
func DownloadFile(ctx context.Context, conn Connector, remotePath, localPath string) (TransferResult, error) {
	result := TransferResult{RemotePath: remotePath, LocalPath: localPath}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("download cancelled: %w", err)
	}

	entry, err := conn.StatFollow(remotePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, fmt.Errorf("%w: the remote file %s does not exist", ErrNotFound, remotePath)
		}
		return result, fmt.Errorf("failed to stat %s: %w", remotePath, err)
	}
	if entry.Type != EntryTypeFile {
		return result, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, remotePath)
	}
	log.Info("The remote file exists", "remote", remotePath, "size", humanize.Bytes(uint64(entry.Size)))

	result = transfer(conn, entry, localPath)
	if !result.OK {
		return result, result.Err
	}
	return result, nil
}

package fetchkit

import (
	"errors"
)

// Sentinel errors for the failure classes of every tool.
// All of them can be checked with errors.Is() on any error returned by this package.

// ErrConfig is returned for missing or malformed command-line or environment input.
var ErrConfig = errors.New("configuration error")

// ErrConnection is returned when the remote host cannot be reached, rejects
// the credentials, or presents a host key that does not match the trust store.
var ErrConnection = errors.New("connection error")

// ErrNotFound is returned when an expected remote file does not exist or is
// not a regular file.
var ErrNotFound = errors.New("remote file not found")

// ErrVerification is returned when a downloaded file is missing from the
// local filesystem after the transfer call returned.
var ErrVerification = errors.New("verification failed")

// ErrCorruptArchive is returned when an archive cannot be read or fails its
// integrity checks during extraction.
var ErrCorruptArchive = errors.New("corrupt archive")

// ExitCode maps the outcome of a tool run to its process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

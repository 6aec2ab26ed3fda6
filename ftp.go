package fetchkit

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/textproto"
	"path"

	"github.com/charmbracelet/log"
	"github.com/jlaffaye/ftp"
)

type FTPConnectorFactory struct{}

func (f *FTPConnectorFactory) Accept(scheme string) bool {
	return scheme == SchemeFTP
}

func (f *FTPConnectorFactory) Create(cfg Config, creds *Credentials) (Connector, error) {
	return NewFTPConnector(cfg, creds)
}

func (f *FTPConnectorFactory) Name() string {
	return SchemeFTP
}

// FTPServerConn is the subset of *ftp.ServerConn used by the connector.
type FTPServerConn interface {
	List(path string) ([]*ftp.Entry, error)
	GetEntry(path string) (*ftp.Entry, error)
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// ftpConnWrapper adapts *ftp.ServerConn to FTPServerConn.
type ftpConnWrapper struct {
	conn *ftp.ServerConn
}

func (w *ftpConnWrapper) List(path string) ([]*ftp.Entry, error)  { return w.conn.List(path) }
func (w *ftpConnWrapper) GetEntry(path string) (*ftp.Entry, error) { return w.conn.GetEntry(path) }
func (w *ftpConnWrapper) Quit() error                              { return w.conn.Quit() }

func (w *ftpConnWrapper) Retr(path string) (io.ReadCloser, error) {
	r, err := w.conn.Retr(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type FTPConnector struct {
	client FTPServerConn
}

var _ Connector = (*FTPConnector)(nil)

// NewFTPConnector dials and logs in. The transport only opens passive data
// connections, so ModeActive falls back to passive with a warning.
func NewFTPConnector(cfg Config, creds *Credentials) (*FTPConnector, error) {
	if cfg.Mode == ModeActive {
		log.Warn("Active mode is not supported by the FTP transport, using passive data connections", "host", cfg.Host)
	}

	c, err := ftp.Dial(cfg.Address(), ftp.DialWithTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial %s: %w", ErrConnection, cfg.Address(), err)
	}

	err = c.Login(cfg.User, creds.Password())
	if err != nil {
		_ = c.Quit() // Close connection on login failure
		return nil, fmt.Errorf("%w: login as %s failed: %w", ErrConnection, cfg.User, err)
	}

	log.Info("Connected to FTP", "host", cfg.Host, "port", cfg.Port)
	return &FTPConnector{client: &ftpConnWrapper{conn: c}}, nil
}

// NewFTPConnectorWithConn wraps an already authenticated server connection.
func NewFTPConnectorWithConn(conn FTPServerConn) *FTPConnector {
	return &FTPConnector{client: conn}
}

func (f *FTPConnector) List(dir string) ([]string, error) {
	entries, err := f.client.List(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		names = append(names, e.Name)
	}
	return names, nil
}

// maxLinkHops bounds how many symlinks StatFollow resolves in a row.
const maxLinkHops = 8

// Stat uses MLST and falls back to listing the parent directory on servers
// that do not implement it.
func (f *FTPConnector) Stat(remotePath string) (Entry, error) {
	e, err := f.lookup(remotePath)
	if err != nil {
		return Entry{}, err
	}
	return entryFromFTP(remotePath, e), nil
}

// StatFollow resolves link entries through their listed target.
func (f *FTPConnector) StatFollow(remotePath string) (Entry, error) {
	current := remotePath
	for hop := 0; hop <= maxLinkHops; hop++ {
		e, err := f.lookup(current)
		if err != nil {
			return Entry{}, err
		}
		if e.Type != ftp.EntryTypeLink || e.Target == "" {
			return entryFromFTP(remotePath, e), nil
		}
		target := e.Target
		if !path.IsAbs(target) {
			target = path.Join(path.Dir(current), target)
		}
		current = target
	}
	return Entry{}, fmt.Errorf("%s: too many levels of symbolic links", remotePath)
}

func (f *FTPConnector) lookup(remotePath string) (*ftp.Entry, error) {
	e, err := f.client.GetEntry(remotePath)
	if err == nil {
		return e, nil
	}

	switch replyCode(err) {
	case ftp.StatusFileUnavailable:
		return nil, fmt.Errorf("%s: %w", remotePath, fs.ErrNotExist)
	case ftp.StatusNotImplemented, ftp.StatusBadCommand, ftp.StatusBadArguments, ftp.StatusNotImplementedParameter:
		return f.lookupInListing(remotePath)
	}
	return nil, err
}

func (f *FTPConnector) lookupInListing(remotePath string) (*ftp.Entry, error) {
	name := path.Base(remotePath)
	entries, err := f.client.List(path.Dir(remotePath))
	if err != nil {
		if replyCode(err) == ftp.StatusFileUnavailable {
			return nil, fmt.Errorf("%s: %w", remotePath, fs.ErrNotExist)
		}
		return nil, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", remotePath, fs.ErrNotExist)
}

// replyCode returns the FTP reply code carried by err, or 0.
func replyCode(err error) int {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code
	}
	return 0
}

func (f *FTPConnector) Download(remotePath, localPath string) (written int64, err error) {
	r, err := f.client.Retr(remotePath)
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve remote file: %w", err)
	}
	defer func() {
		if cerr := r.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to finish transfer: %w", cerr)
		}
	}()

	return saveLocalFile(localPath, r)
}

func (f *FTPConnector) Close() error {
	return f.client.Quit()
}

func entryFromFTP(remotePath string, e *ftp.Entry) Entry {
	entry := Entry{
		Name: path.Base(remotePath),
		Path: remotePath,
		Type: EntryTypeOther,
		Size: int64(e.Size),
	}
	if e.Type == ftp.EntryTypeFile {
		entry.Type = EntryTypeFile
	}
	return entry
}

package fetchkit

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/charmbracelet/log"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type SFTPConnectorFactory struct{}

func (f *SFTPConnectorFactory) Accept(scheme string) bool { return scheme == SchemeSFTP }

// Create bootstraps the host key file if needed and then connects with
// strict host key checking.
func (f *SFTPConnectorFactory) Create(cfg Config, creds *Credentials) (Connector, error) {
	if _, err := EnsureKnownHosts(cfg, creds); err != nil {
		return nil, err
	}
	return NewSFTPConnector(cfg, creds)
}

func (f *SFTPConnectorFactory) Name() string { return SchemeSFTP }

// SFTPClient abstracts the read-only subset of *sftp.Client the connector uses.
type SFTPClient interface {
	ReadDir(p string) ([]os.FileInfo, error)
	Lstat(p string) (os.FileInfo, error)
	Stat(p string) (os.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
	Close() error
}

// sftpClientWrapper adapts *sftp.Client to SFTPClient. Open keeps returning
// the concrete *sftp.File so io.Copy picks up its concurrent WriteTo.
type sftpClientWrapper struct {
	client *sftp.Client
}

func (w *sftpClientWrapper) ReadDir(p string) ([]os.FileInfo, error) { return w.client.ReadDir(p) }
func (w *sftpClientWrapper) Lstat(p string) (os.FileInfo, error)     { return w.client.Lstat(p) }
func (w *sftpClientWrapper) Stat(p string) (os.FileInfo, error)      { return w.client.Stat(p) }
func (w *sftpClientWrapper) Close() error                            { return w.client.Close() }

func (w *sftpClientWrapper) Open(path string) (io.ReadCloser, error) {
	f, err := w.client.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

type SFTPConnector struct {
	sshClient  *ssh.Client
	sftpClient SFTPClient
}

var _ Connector = (*SFTPConnector)(nil)

// NewSFTPConnector connects to cfg.Address, verifying the host key against
// cfg.KnownHostsFile, and opens an SFTP session with read pipelining of
// cfg.Prefetch requests per file.
func NewSFTPConnector(cfg Config, creds *Credentials) (*SFTPConnector, error) {
	callback, err := strictHostKeyCallback(cfg.KnownHostsFile)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded host key from file", "path", cfg.KnownHostsFile)

	sshClient, err := dialSSH(cfg, creds, callback)
	if err != nil {
		return nil, err
	}

	client, err := sftp.NewClient(sshClient,
		sftp.UseConcurrentReads(true),
		sftp.MaxConcurrentRequestsPerFile(cfg.Prefetch),
	)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("%w: failed to start sftp session: %w", ErrConnection, err)
	}

	log.Info("Connected to SFTP", "host", cfg.Host)
	return &SFTPConnector{
		sshClient:  sshClient,
		sftpClient: &sftpClientWrapper{client: client},
	}, nil
}

// NewSFTPConnectorWithClient wraps an existing SFTP client. The caller keeps
// ownership of any underlying SSH connection.
func NewSFTPConnectorWithClient(client SFTPClient) *SFTPConnector {
	return &SFTPConnector{sftpClient: client}
}

func (s *SFTPConnector) List(dir string) ([]string, error) {
	infos, err := s.sftpClient.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Name() == "." || info.Name() == ".." {
			continue
		}
		names = append(names, info.Name())
	}
	return names, nil
}

func (s *SFTPConnector) Stat(remotePath string) (Entry, error) {
	info, err := s.sftpClient.Lstat(remotePath)
	if err != nil {
		return Entry{}, err
	}
	return entryFromFileInfo(remotePath, info), nil
}

func (s *SFTPConnector) StatFollow(remotePath string) (Entry, error) {
	info, err := s.sftpClient.Stat(remotePath)
	if err != nil {
		return Entry{}, err
	}
	return entryFromFileInfo(remotePath, info), nil
}

func (s *SFTPConnector) Download(remotePath, localPath string) (int64, error) {
	remoteFile, err := s.sftpClient.Open(remotePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open remote file: %w", err)
	}
	defer remoteFile.Close()

	return saveLocalFile(localPath, remoteFile)
}

func (s *SFTPConnector) Close() error {
	var err error
	if s.sftpClient != nil {
		err = s.sftpClient.Close()
	}
	if s.sshClient != nil {
		if cerr := s.sshClient.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func entryFromFileInfo(remotePath string, info os.FileInfo) Entry {
	entry := Entry{
		Name: path.Base(remotePath),
		Path: remotePath,
		Type: EntryTypeOther,
		Size: info.Size(),
	}
	if info.Mode().IsRegular() {
		entry.Type = EntryTypeFile
	}
	return entry
}

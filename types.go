package fetchkit

// EntryType classifies a remote directory entry.
type EntryType int

const (
	// EntryTypeOther covers directories, symlinks, devices and anything else
	// that is not plain file data.
	EntryTypeOther EntryType = iota
	// EntryTypeFile is a regular file.
	EntryTypeFile
)

func (t EntryType) String() string {
	if t == EntryTypeFile {
		return "file"
	}
	return "other"
}

// Entry is a single remote directory entry.
type Entry struct {
	Name string
	Path string
	Type EntryType
	Size int64
}

// TransferResult is the outcome of downloading one regular file.
type TransferResult struct {
	RemotePath string
	LocalPath  string
	Size       int64
	// OK reports whether the local file exists after the transfer.
	OK  bool
	Err error
}

// Connector interface for remote file operations
type Connector interface {
	// List returns the entry names directly under dir.
	List(dir string) ([]string, error)
	// Stat describes remotePath without following symlinks. A missing path
	// yields an error matching fs.ErrNotExist.
	Stat(remotePath string) (Entry, error)
	// StatFollow is Stat but resolves symlinks to the entry they point at.
	StatFollow(remotePath string) (Entry, error)
	// Download copies remotePath to localPath, overwriting it, and returns
	// the number of bytes written.
	Download(remotePath, localPath string) (int64, error)
	Close() error
}

// ConnectorFactory interface for creating connectors
type ConnectorFactory interface {
	Accept(scheme string) bool
	Create(cfg Config, creds *Credentials) (Connector, error)
	Name() string
}

package fetchkit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFTPConn implements FTPServerConn for testing.
type mockFTPConn struct {
	listings   map[string][]*ftp.Entry
	entries    map[string]*ftp.Entry
	files      map[string][]byte
	noMLST     bool
	retrErr    error
	closeErr   error
	retrieved  []string
	listCalls  []string
	quitCalled bool
}

var _ FTPServerConn = (*mockFTPConn)(nil)

func newMockFTPConn() *mockFTPConn {
	return &mockFTPConn{
		listings: make(map[string][]*ftp.Entry),
		entries:  make(map[string]*ftp.Entry),
		files:    make(map[string][]byte),
	}
}

func (m *mockFTPConn) addFile(dir, name string, content []byte) {
	e := &ftp.Entry{Name: name, Type: ftp.EntryTypeFile, Size: uint64(len(content))}
	m.listings[dir] = append(m.listings[dir], e)
	m.entries[dir+"/"+name] = e
	m.files[dir+"/"+name] = content
}

func (m *mockFTPConn) addFolder(dir, name string) {
	e := &ftp.Entry{Name: name, Type: ftp.EntryTypeFolder}
	m.listings[dir] = append(m.listings[dir], e)
	m.entries[dir+"/"+name] = e
}

func (m *mockFTPConn) List(path string) ([]*ftp.Entry, error) {
	m.listCalls = append(m.listCalls, path)
	entries, ok := m.listings[path]
	if !ok {
		return nil, &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such directory"}
	}
	return entries, nil
}

func (m *mockFTPConn) GetEntry(path string) (*ftp.Entry, error) {
	if m.noMLST {
		return nil, &textproto.Error{Code: ftp.StatusNotImplemented, Msg: "MLST is not supported"}
	}
	e, ok := m.entries[path]
	if !ok {
		return nil, &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file"}
	}
	return e, nil
}

type closeErrReader struct {
	io.Reader
	err error
}

func (r closeErrReader) Close() error { return r.err }

func (m *mockFTPConn) Retr(path string) (io.ReadCloser, error) {
	m.retrieved = append(m.retrieved, path)
	if m.retrErr != nil {
		return nil, m.retrErr
	}
	content, ok := m.files[path]
	if !ok {
		return nil, &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file"}
	}
	return closeErrReader{Reader: bytes.NewReader(content), err: m.closeErr}, nil
}

func (m *mockFTPConn) Quit() error {
	m.quitCalled = true
	return nil
}

func TestFTPConnector_List(t *testing.T) {
	conn := newMockFTPConn()
	conn.listings["/pub"] = []*ftp.Entry{
		{Name: ".", Type: ftp.EntryTypeFolder},
		{Name: "..", Type: ftp.EntryTypeFolder},
		{Name: "readme.txt", Type: ftp.EntryTypeFile},
		{Name: "releases", Type: ftp.EntryTypeFolder},
	}

	names, err := NewFTPConnectorWithConn(conn).List("/pub")
	require.NoError(t, err)
	assert.Equal(t, []string{"readme.txt", "releases"}, names)
}

func TestFTPConnector_Stat(t *testing.T) {
	conn := newMockFTPConn()
	conn.addFile("/pub", "readme.txt", []byte("hello"))
	conn.addFolder("/pub", "releases")
	conn.listings["/pub"] = append(conn.listings["/pub"], &ftp.Entry{Name: "latest", Type: ftp.EntryTypeLink})
	connector := NewFTPConnectorWithConn(conn)

	for _, noMLST := range []bool{false, true} {
		conn.noMLST = noMLST

		entry, err := connector.Stat("/pub/readme.txt")
		require.NoError(t, err)
		assert.Equal(t, Entry{Name: "readme.txt", Path: "/pub/readme.txt", Type: EntryTypeFile, Size: 5}, entry)

		entry, err = connector.Stat("/pub/releases")
		require.NoError(t, err)
		assert.Equal(t, EntryTypeOther, entry.Type)

		_, err = connector.Stat("/pub/missing.txt")
		assert.ErrorIs(t, err, fs.ErrNotExist, "noMLST=%v", noMLST)
	}

	entry, err := connector.Stat("/pub/latest")
	require.NoError(t, err)
	assert.Equal(t, EntryTypeOther, entry.Type)
	assert.Contains(t, conn.listCalls, "/pub")
}

func TestFTPConnector_StatMissingParent(t *testing.T) {
	conn := newMockFTPConn()
	connector := NewFTPConnectorWithConn(conn)

	for _, noMLST := range []bool{false, true} {
		conn.noMLST = noMLST
		_, err := connector.Stat("/absent/x.txt")
		assert.ErrorIs(t, err, fs.ErrNotExist, "noMLST=%v", noMLST)

		_, err = DownloadFile(context.Background(), connector, "/absent/x.txt", filepath.Join(t.TempDir(), "x.txt"))
		assert.ErrorIs(t, err, ErrNotFound, "noMLST=%v", noMLST)
	}
	assert.Equal(t, []string{"/absent", "/absent"}, conn.listCalls)
	assert.Empty(t, conn.retrieved)
}

func TestFTPConnector_StatFollow(t *testing.T) {
	conn := newMockFTPConn()
	conn.addFile("/pub", "release-1.2.tar", []byte("tarball"))
	link := &ftp.Entry{Name: "latest", Type: ftp.EntryTypeLink, Target: "release-1.2.tar"}
	conn.listings["/pub"] = append(conn.listings["/pub"], link)
	conn.entries["/pub/latest"] = link
	loop := &ftp.Entry{Name: "loop", Type: ftp.EntryTypeLink, Target: "/pub/loop"}
	conn.entries["/pub/loop"] = loop
	connector := NewFTPConnectorWithConn(conn)

	entry, err := connector.Stat("/pub/latest")
	require.NoError(t, err)
	assert.Equal(t, EntryTypeOther, entry.Type)

	entry, err = connector.StatFollow("/pub/latest")
	require.NoError(t, err)
	assert.Equal(t, Entry{Name: "latest", Path: "/pub/latest", Type: EntryTypeFile, Size: 7}, entry)

	_, err = connector.StatFollow("/pub/loop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many levels of symbolic links")
}

func TestFTPConnector_StatOtherErrorsPropagate(t *testing.T) {
	conn := newMockFTPConn()
	connector := NewFTPConnectorWithConn(&failingGetEntry{mockFTPConn: conn, err: errors.New("connection reset")})

	_, err := connector.Stat("/pub/readme.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
}

type failingGetEntry struct {
	*mockFTPConn
	err error
}

func (f *failingGetEntry) GetEntry(string) (*ftp.Entry, error) { return nil, f.err }

func TestFTPConnector_Download(t *testing.T) {
	conn := newMockFTPConn()
	conn.addFile("/pub", "data.bin", []byte("0123456789"))
	connector := NewFTPConnectorWithConn(conn)

	localPath := filepath.Join(t.TempDir(), "sub", "data.bin")
	written, err := connector.Download("/pub/data.bin", localPath)
	require.NoError(t, err)
	assert.Equal(t, int64(10), written)

	content, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(content))

	conn.closeErr = errors.New("426 transfer aborted")
	_, err = connector.Download("/pub/data.bin", localPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to finish transfer")

	conn.retrErr = &textproto.Error{Code: 425, Msg: "Can't open data connection"}
	_, err = connector.Download("/pub/data.bin", localPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to retrieve remote file")

	require.NoError(t, connector.Close())
	assert.True(t, conn.quitCalled)
}

func TestFTPConnector_DownloadFileNotFound(t *testing.T) {
	conn := newMockFTPConn()
	connector := NewFTPConnectorWithConn(conn)

	_, err := DownloadFile(context.Background(), connector, "/pub/missing.txt", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, conn.retrieved)
}

func TestFTPConnector_SynchronizeDirectory(t *testing.T) {
	conn := newMockFTPConn()
	conn.addFile("/pub", "a.txt", []byte("a"))
	conn.addFolder("/pub", "old")
	conn.addFile("/pub", "b.txt", []byte("bb"))

	localDir := t.TempDir()
	results, err := Synchronize(context.Background(), NewFTPConnectorWithConn(conn), "/pub", localDir)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, Failures(results))
	assert.Equal(t, []string{"/pub/a.txt", "/pub/b.txt"}, conn.retrieved)
	assert.Equal(t, []string{"a.txt", "b.txt"}, localNames(t, localDir))
}

func TestNewFTPConnector_Unreachable(t *testing.T) {
	cfg := Config{
		Scheme:  SchemeFTP,
		Host:    "127.0.0.1",
		Port:    closedPort(t),
		User:    "anonymous",
		Mode:    ModePassive,
		Timeout: 2 * time.Second,
	}

	_, err := Connect(cfg, NewCredentials([]byte("guest")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
}

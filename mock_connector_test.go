package fetchkit

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"testing"
)

// mockConnector is an in-memory Connector that records every call.
type mockConnector struct {
	listing     map[string][]string
	entries     map[string]Entry
	contents    map[string][]byte
	listErr     error
	statErr     map[string]error
	downloadErr map[string]error
	// phantom lists remote paths whose download reports success without
	// writing anything locally.
	phantom map[string]bool
	// links maps a symlink path to the remote path it points at.
	links map[string]string

	stats     []string
	downloads []string
	closed    bool
}

var _ Connector = (*mockConnector)(nil)

func newMockConnector() *mockConnector {
	return &mockConnector{
		listing:     make(map[string][]string),
		entries:     make(map[string]Entry),
		contents:    make(map[string][]byte),
		statErr:     make(map[string]error),
		downloadErr: make(map[string]error),
		phantom:     make(map[string]bool),
		links:       make(map[string]string),
	}
}

func (m *mockConnector) addFile(dir, name string, content []byte) string {
	p := path.Join(dir, name)
	m.listing[dir] = append(m.listing[dir], name)
	m.entries[p] = Entry{Name: name, Path: p, Type: EntryTypeFile, Size: int64(len(content))}
	m.contents[p] = content
	return p
}

func (m *mockConnector) addOther(dir, name string) string {
	p := path.Join(dir, name)
	m.listing[dir] = append(m.listing[dir], name)
	m.entries[p] = Entry{Name: name, Path: p, Type: EntryTypeOther}
	return p
}

func (m *mockConnector) addLink(dir, name, target string) string {
	p := m.addOther(dir, name)
	m.links[p] = target
	return p
}

func (m *mockConnector) List(dir string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.listing[dir]...), nil
}

func (m *mockConnector) Stat(remotePath string) (Entry, error) {
	m.stats = append(m.stats, remotePath)
	if err, ok := m.statErr[remotePath]; ok {
		return Entry{}, err
	}
	entry, ok := m.entries[remotePath]
	if !ok {
		return Entry{}, fmt.Errorf("%s: %w", remotePath, fs.ErrNotExist)
	}
	return entry, nil
}

func (m *mockConnector) StatFollow(remotePath string) (Entry, error) {
	if target, ok := m.links[remotePath]; ok {
		entry, err := m.Stat(target)
		if err != nil {
			return Entry{}, err
		}
		entry.Name = path.Base(remotePath)
		entry.Path = remotePath
		return entry, nil
	}
	return m.Stat(remotePath)
}

func (m *mockConnector) Download(remotePath, localPath string) (int64, error) {
	m.downloads = append(m.downloads, remotePath)
	if err, ok := m.downloadErr[remotePath]; ok {
		return 0, err
	}
	if target, ok := m.links[remotePath]; ok {
		remotePath = target
	}
	content := m.contents[remotePath]
	if m.phantom[remotePath] {
		return int64(len(content)), nil
	}
	if err := os.WriteFile(localPath, content, 0644); err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

func (m *mockConnector) Close() error {
	m.closed = true
	return nil
}

const mockScheme = "mock"

// mockConnectorFactory hands out a prepared mockConnector.
type mockConnectorFactory struct {
	conn *mockConnector
}

func (f *mockConnectorFactory) Accept(scheme string) bool { return scheme == mockScheme }

func (f *mockConnectorFactory) Create(Config, *Credentials) (Connector, error) {
	return f.conn, nil
}

func (f *mockConnectorFactory) Name() string { return mockScheme }

// useMockConnector registers conn for the mock scheme until the test ends and
// returns a config that selects it.
func useMockConnector(t *testing.T, conn *mockConnector) Config {
	t.Helper()
	saved := connectorFactories
	connectorFactories = append([]ConnectorFactory{&mockConnectorFactory{conn: conn}}, saved...)
	t.Cleanup(func() { connectorFactories = saved })
	return Config{Scheme: mockScheme, Host: "mock.example.com", Port: 1, User: "u"}
}

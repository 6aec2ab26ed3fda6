package fetchkit

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// hostKeyRecorder accepts any host key and remembers it. It backs the
// trust-on-first-use bootstrap.
type hostKeyRecorder struct {
	hosts []string
	key   ssh.PublicKey
}

func (r *hostKeyRecorder) callback(hostname string, _ net.Addr, key ssh.PublicKey) error {
	r.hosts = []string{knownhosts.Normalize(hostname)}
	r.key = key
	log.Warn("Trusting host key on first use", "host", hostname, "type", key.Type(), "fingerprint", ssh.FingerprintSHA256(key))
	return nil
}

// save writes the recorded key to path in known_hosts format.
func (r *hostKeyRecorder) save(path string) error {
	if r.key == nil {
		return errors.New("no host key was presented")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	line := knownhosts.Line(r.hosts, r.key) + "\n"
	if err := os.WriteFile(path, []byte(line), 0600); err != nil {
		return fmt.Errorf("failed to write host key file: %w", err)
	}
	return nil
}

// EnsureKnownHosts creates the host key file at cfg.KnownHostsFile when it
// does not exist yet. It connects once, accepts whatever key the server
// presents and records it, so the first contact is never verified out of
// band. Later connections are checked strictly against the file. The file is
// only written when the connection, including authentication, succeeds.
// It reports whether the file was created.
func EnsureKnownHosts(cfg Config, creds *Credentials) (bool, error) {
	if _, err := os.Stat(cfg.KnownHostsFile); err == nil {
		log.Info("Host key file exists", "path", cfg.KnownHostsFile)
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("%w: failed to check host key file: %w", ErrConfig, err)
	}

	log.Info("Host key file does not exist, now creating one", "path", cfg.KnownHostsFile)

	recorder := &hostKeyRecorder{}
	client, err := dialSSH(cfg, creds, recorder.callback)
	if err != nil {
		return false, err
	}
	_ = client.Close()

	if err := recorder.save(cfg.KnownHostsFile); err != nil {
		return false, err
	}

	log.Info("Created host key file", "path", cfg.KnownHostsFile)
	return true, nil
}

// strictHostKeyCallback only accepts hosts whose key is already in path.
func strictHostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load host key file %s: %w", ErrConfig, path, err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) {
			if len(keyErr.Want) == 0 {
				return fmt.Errorf("host %s is not in %s: %w", hostname, path, err)
			}
			return fmt.Errorf("host key for %s does not match %s (got %s): %w",
				hostname, path, ssh.FingerprintSHA256(key), err)
		}
		return err
	}, nil
}

func passwordAuth(creds *Credentials) []ssh.AuthMethod {
	password := creds.Password()
	return []ssh.AuthMethod{
		ssh.Password(password),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}),
	}
}

func dialSSH(cfg Config, creds *Credentials, callback ssh.HostKeyCallback) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            passwordAuth(creds),
		HostKeyCallback: callback,
		Timeout:         cfg.Timeout,
	}

	client, err := ssh.Dial("tcp", cfg.Address(), config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial %s: %w", ErrConnection, cfg.Address(), err)
	}
	return client, nil
}

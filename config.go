package fetchkit

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	// SchemeSFTP selects the SSH file transfer connector.
	SchemeSFTP = "sftp"
	// SchemeFTP selects the plain FTP connector.
	SchemeFTP = "ftp"

	// DefaultPrefetch is the number of concurrent read requests issued per
	// SFTP file, the OpenSSH default. Large files (100 MB and up) need it to
	// sustain throughput.
	DefaultPrefetch = 64

	defaultSFTPPort = 22
	defaultFTPPort  = 21
	defaultTimeout  = 30 * time.Second
)

// TransferMode is the FTP data connection mode.
type TransferMode string

const (
	ModeActive  TransferMode = "active"
	ModePassive TransferMode = "passive"
)

// ParseTransferMode accepts "active" or "passive".
func ParseTransferMode(s string) (TransferMode, error) {
	switch TransferMode(s) {
	case ModeActive, ModePassive:
		return TransferMode(s), nil
	}
	return "", fmt.Errorf("%w: invalid transfer mode %q, only active or passive are accepted", ErrConfig, s)
}

// Config holds the parameters of a single remote connection.
// It is built once at startup and passed by value.
type Config struct {
	// Scheme is either SchemeSFTP or SchemeFTP.
	Scheme string

	Host string

	// Port defaults to 22 for SFTP and 21 for FTP.
	Port int

	User string

	// KnownHostsFile is the trust store for SFTP host keys. It is created on
	// first use when absent.
	KnownHostsFile string

	// Mode is the FTP data connection mode (default active).
	Mode TransferMode

	// Prefetch is the number of concurrent SFTP read requests per file
	// (default 64).
	Prefetch int

	// Timeout bounds the TCP dial (default 30s).
	Timeout time.Duration
}

// WithDefaults returns a copy of the config with default values applied.
func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		switch c.Scheme {
		case SchemeSFTP:
			c.Port = defaultSFTPPort
		case SchemeFTP:
			c.Port = defaultFTPPort
		}
	}
	if c.Mode == "" {
		c.Mode = ModeActive
	}
	if c.Prefetch == 0 {
		c.Prefetch = DefaultPrefetch
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Validate reports the first missing or malformed parameter.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrConfig)
	}
	if c.User == "" {
		return fmt.Errorf("%w: user is required", ErrConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d is out of range", ErrConfig, c.Port)
	}
	if _, err := ParseTransferMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Prefetch < 1 {
		return fmt.Errorf("%w: prefetch must be at least 1, got %d", ErrConfig, c.Prefetch)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrConfig)
	}
	if c.Scheme == SchemeSFTP && c.KnownHostsFile == "" {
		return fmt.Errorf("%w: host key file is required for sftp", ErrConfig)
	}
	return nil
}

// Address returns host:port suitable for dialing.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Environment holds defaults read from FETCHKIT_* variables. Command-line
// flags take precedence over them.
type Environment struct {
	Host       string        `env:"FETCHKIT_HOST"`
	Port       int           `env:"FETCHKIT_PORT"`
	User       string        `env:"FETCHKIT_USER"`
	Password   string        `env:"FETCHKIT_PASSWORD"`
	KnownHosts string        `env:"FETCHKIT_KNOWN_HOSTS"`
	Mode       string        `env:"FETCHKIT_MODE" envDefault:"active"`
	Prefetch   int           `env:"FETCHKIT_PREFETCH" envDefault:"64"`
	Timeout    time.Duration `env:"FETCHKIT_TIMEOUT" envDefault:"30s"`
	LogLevel   string        `env:"FETCHKIT_LOG_LEVEL" envDefault:"info"`
}

// LoadEnvironment loads the given dotenv files (".env" when none are given)
// into the process environment, skipping missing ones, and parses the
// FETCHKIT_* variables. Variables already set are not overridden.
func LoadEnvironment(files ...string) (Environment, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Environment{}, fmt.Errorf("%w: failed to load %s: %w", ErrConfig, file, err)
		}
	}

	var e Environment
	if err := env.Parse(&e); err != nil {
		return Environment{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return e, nil
}

package fetchkit

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// Credentials holds the password for one connection. Call Clear once the
// connection is no longer needed.
type Credentials struct {
	password []byte
}

// NewCredentials stores a private copy of password.
func NewCredentials(password []byte) *Credentials {
	// Create a new copy of the password to avoid issues with slice bounds
	passwordCopy := make([]byte, len(password))
	copy(passwordCopy, password)
	return &Credentials{password: passwordCopy}
}

// Password returns the stored secret as a string for transports that need one.
func (c *Credentials) Password() string {
	if c == nil {
		return ""
	}
	return string(c.password)
}

func (c *Credentials) Clear() {
	if c == nil {
		return
	}
	secureWipe(c.password)
	c.password = nil
}

// secureWipe safely clears sensitive data from memory
// It overwrites the slice with zeros
func secureWipe(data []byte) {
	if data == nil {
		return
	}
	for i := range data {
		data[i] = 0
	}
}

var errNoTerminal = errors.New("standard input is not a terminal")

// ResolveCredentials returns credentials from the flag value, then the
// environment value, and finally prompts on the terminal without echo.
func ResolveCredentials(flagValue, envValue string) (*Credentials, error) {
	switch {
	case flagValue != "":
		return NewCredentials([]byte(flagValue)), nil
	case envValue != "":
		return NewCredentials([]byte(envValue)), nil
	}

	password, err := askPassword()
	if err != nil {
		return nil, fmt.Errorf("%w: no password given and %w", ErrConfig, err)
	}
	defer secureWipe(password)
	return NewCredentials(password), nil
}

// askPassword securely reads a password from the terminal without echoing it
func askPassword() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errNoTerminal
	}

	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

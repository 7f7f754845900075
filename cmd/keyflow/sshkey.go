package main

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// errKeyNotProtected is returned for SSH keys without a passphrase.
var errKeyNotProtected = errors.New("key is not password-protected: keys are required to be password-protected")

// resolveKeyPath returns path when it exists. A bare file name is also
// looked up in ~/.ssh.
func resolveKeyPath(path string) (string, error) {
	if _, err := os.Stat(path); err == nil || path == "-" {
		return path, nil
	}

	name := filepath.Clean(path)
	if filepath.Dir(name) != "." || strings.HasPrefix(path, ".") {
		return "", fmt.Errorf("could not open %s: %w", path, os.ErrNotExist)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	inSSHDir := filepath.Join(home, ".ssh", name)
	if _, err := os.Stat(inSSHDir); err != nil {
		return "", fmt.Errorf("could not open %s: not found here or in %s: %w", path, filepath.Dir(inSSHDir), os.ErrNotExist)
	}
	return inSSHDir, nil
}

func openFileOrStdin(path string) (*os.File, error) {
	if path == "-" || path == "" {
		if stdinIsPipe() {
			return os.Stdin, nil
		}
		return nil, fmt.Errorf("no key path given and stdin is not a pipe")
	}

	resolvedPath, err := resolveKeyPath(path)
	if err != nil {
		return nil, err
	}

	// G304: resolvedPath is user-provided input, which is expected for a CLI tool
	f, err := os.Open(resolvedPath) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", resolvedPath, err)
	}
	return f, nil
}

func stdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && (fi.Mode()&os.ModeNamedPipe) != 0
}

func parsePrivateKey(bts, pass []byte) (interface{}, error) {
	if len(pass) == 0 {
		//nolint: wrapcheck
		return ssh.ParseRawPrivateKey(bts)
	}
	//nolint: wrapcheck
	return ssh.ParseRawPrivateKeyWithPassphrase(bts, pass)
}

func isPasswordError(err error) bool {
	var kerr *ssh.PassphraseMissingError
	return errors.As(err, &kerr)
}

func askKeyPassphrase(path string) ([]byte, error) {
	defer fmt.Fprintf(os.Stderr, "\n")
	return readPassword(fmt.Sprintf("Enter the passphrase to unlock %q: ", path))
}

// readEd25519Key reads a password-protected Ed25519 SSH private key from
// path, or from stdin when it is piped.
func readEd25519Key(path string) (ed25519.PrivateKey, error) {
	f, err := openFileOrStdin(path)
	if err != nil {
		return nil, fmt.Errorf("could not read key: %w", err)
	}
	defer f.Close() //nolint:errcheck
	bts, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("could not read key: %w", err)
	}

	key, err := parsePrivateKey(bts, nil)
	switch {
	case err == nil:
		return nil, errKeyNotProtected
	case !isPasswordError(err):
		return nil, fmt.Errorf("could not parse key: %w", err)
	}

	pass, err := askKeyPassphrase(path)
	if err != nil {
		return nil, err
	}
	if key, err = parsePrivateKey(bts, pass); err != nil {
		return nil, fmt.Errorf("could not parse key with passphrase: %w", err)
	}

	switch key := key.(type) {
	case *ed25519.PrivateKey:
		return *key, nil
	default:
		return nil, fmt.Errorf("unsupported key type %T: only ed25519 keys can seed a mnemonic", key)
	}
}

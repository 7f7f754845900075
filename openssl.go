// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// DefaultOpenSSLTimeout bounds a single openssl invocation.
const DefaultOpenSSLTimeout = 10 * time.Second

// OpenSSLProvider generates keys by running `openssl genpkey -text` and
// reading the private and public key out of the text dump.
type OpenSSLProvider struct {
	// Binary is the openssl executable. It defaults to "openssl"
	// ("openssl.exe" on Windows) looked up in PATH.
	Binary string

	// Timeout bounds the invocation. Zero means DefaultOpenSSLTimeout.
	Timeout time.Duration
}

func (p OpenSSLProvider) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	if runtime.GOOS == "windows" {
		return "openssl.exe"
	}
	return "openssl"
}

// RequestKeyPair runs openssl for curve and parses its output.
func (p OpenSSLProvider) RequestKeyPair(ctx context.Context, curve Curve) (*KeyMaterial, error) {
	var args []string
	switch curve {
	case Secp256k1:
		args = []string{"genpkey", "-algorithm", "EC", "-pkeyopt", "ec_paramgen_curve:secp256k1", "-text"}
	case Ed25519:
		args = []string{"genpkey", "-algorithm", "ED25519", "-text"}
	default:
		return nil, inputErrf("openssl provider", ErrMalformedKey, "unsupported curve %s", curve)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultOpenSSLTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bin := p.binary()
	log.Debugf("Running %s %s", bin, strings.Join(args, " "))

	// G204: arguments are fixed per curve, only the binary is configurable
	cmd := exec.CommandContext(ctx, bin, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s genpkey failed: %w: %s", bin, err, msg)
		}
		return nil, fmt.Errorf("%s genpkey failed: %w", bin, err)
	}

	return ParseOpenSSLKeyText(curve, stdout.Bytes())
}

// ParseOpenSSLKeyText extracts the priv: and pub: hex blocks from the output
// of `openssl genpkey -text` or `openssl pkey -text`. EC private keys may be
// printed with a leading 00 byte or fewer than 32 bytes; both are brought to
// exactly 32 bytes.
func ParseOpenSSLKeyText(curve Curve, text []byte) (*KeyMaterial, error) {
	blocks := make(map[string]*strings.Builder)
	var current *strings.Builder

	scanner := bufio.NewScanner(bytes.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "priv:", "pub:":
			current = &strings.Builder{}
			blocks[strings.TrimSuffix(line, ":")] = current
			continue
		}
		if current != nil && isHexDumpLine(line) {
			current.WriteString(strings.ReplaceAll(line, ":", ""))
			continue
		}
		current = nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read openssl output: %w", err)
	}

	privBlock, ok := blocks["priv"]
	if !ok {
		return nil, fmt.Errorf("%w: openssl output has no priv: block", ErrMalformedKey)
	}
	priv, err := hex.DecodeString(privBlock.String())
	if err != nil {
		return nil, fmt.Errorf("%w: openssl priv: block: %w", ErrMalformedKey, err)
	}
	priv, err = fixedWidthKey(priv, 32)
	if err != nil {
		return nil, err
	}

	material := &KeyMaterial{PrivateKey: priv}
	if pubBlock, ok := blocks["pub"]; ok {
		pub, err := hex.DecodeString(pubBlock.String())
		if err != nil {
			return nil, fmt.Errorf("%w: openssl pub: block: %w", ErrMalformedKey, err)
		}
		material.PublicKey = pub
	}

	return material, nil
}

// isHexDumpLine reports whether line looks like "0a:1b:2c:".
func isHexDumpLine(line string) bool {
	if line == "" {
		return false
	}
	for _, c := range line {
		switch {
		case c == ':':
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// fixedWidthKey strips leading zero padding from b and left-pads it back to
// size bytes.
func fixedWidthKey(b []byte, size int) ([]byte, error) {
	for len(b) > size && b[0] == 0x00 {
		b = b[1:]
	}
	if len(b) > size {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrMalformedKey, len(b))
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out, nil
}

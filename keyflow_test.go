// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/matryer/is"
)

func mustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func repeatByte(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

// TestParseChain tests chain names and tickers
func TestParseChain(t *testing.T) {
	is := is.New(t)

	for in, want := range map[string]Chain{
		"btc": Bitcoin, "Bitcoin": Bitcoin,
		"eth": Ethereum, " ethereum ": Ethereum,
		"SOL": Solana, "solana": Solana,
	} {
		got, err := ParseChain(in)
		is.NoErr(err)
		is.Equal(got, want)
	}

	_, err := ParseChain("doge")
	is.True(errors.Is(err, ErrUnknownChain))

	var inputErr *InputError
	is.True(errors.As(err, &inputErr))
}

// TestChainCurve tests that each chain reports the curve it signs with
func TestChainCurve(t *testing.T) {
	is := is.New(t)

	is.Equal(Bitcoin.Curve(), Secp256k1)
	is.Equal(Ethereum.Curve(), Secp256k1)
	is.Equal(Solana.Curve(), Ed25519)

	is.Equal(Bitcoin.DefaultPath(), "m/44'/0'/0'/0/0")
	is.Equal(Ethereum.DefaultPath(), "m/44'/60'/0'/0/0")
	is.Equal(Solana.DefaultPath(), "m/44'/501'/0'/0'")
}

// TestNewKeyPair_RejectsOutOfRange tests that zero and n are not accepted as
// secp256k1 private keys
func TestNewKeyPair_RejectsOutOfRange(t *testing.T) {
	is := is.New(t)

	_, err := NewKeyPair(Secp256k1, make([]byte, 32))
	is.True(errors.Is(err, ErrMalformedKey))

	_, err = NewKeyPair(Secp256k1, CurveOrder().Bytes())
	is.True(errors.Is(err, ErrMalformedKey))

	_, err = NewKeyPair(Secp256k1, repeatByte(0x01, 31))
	is.True(errors.Is(err, ErrMalformedKey))

	// Any 32 bytes are a valid Ed25519 seed, including zero.
	_, err = NewKeyPair(Ed25519, make([]byte, 32))
	is.NoErr(err)
}

// TestKeyPair_PublicKeyForms tests the compressed and uncompressed public
// key encodings
func TestKeyPair_PublicKeyForms(t *testing.T) {
	is := is.New(t)

	kp, err := NewKeyPair(Secp256k1, repeatByte(0x01, 32))
	is.NoErr(err)
	is.Equal(len(kp.PublicKey()), 33)

	full, err := kp.UncompressedPublicKey()
	is.NoErr(err)
	is.Equal(len(full), 65)
	is.Equal(full[0], byte(0x04))

	un := kp.Uncompressed()
	is.Equal(un.PublicKey(), full)
	is.Equal(un.PrivateKey(), kp.PrivateKey())

	// Mutating returned slices must not affect the pair.
	pub := kp.PublicKey()
	pub[0] ^= 0xff
	is.True(!bytes.Equal(pub, kp.PublicKey()))

	ed, err := NewKeyPair(Ed25519, repeatByte(0x02, 32))
	is.NoErr(err)
	is.Equal(len(ed.PublicKey()), 32)
	_, err = ed.UncompressedPublicKey()
	is.True(errors.Is(err, ErrCurveMismatch))
}

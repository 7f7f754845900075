// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

// Package keyflow derives, encodes and signs with keys for Bitcoin, Ethereum
// and Solana from a single seed or from raw key material.
//
// The package reproduces the exact pipelines each chain uses:
//   - Bitcoin: secp256k1 ECDSA, SHA-256 + RIPEMD-160, Base58Check
//   - Ethereum: secp256k1 ECDSA with public key recovery, Keccak-256, EIP-55
//   - Solana: Ed25519 EdDSA, Base58 public keys
//
// HD derivation follows BIP32 for secp256k1 and SLIP-0010 for Ed25519.
// Every function in the package is a pure function over its inputs, so
// calls from independent goroutines need no coordination. The only blocking
// call is GenerateKeyPair, which waits on a KeyMaterialProvider.
package keyflow

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Curve identifies the elliptic curve a key lives on.
type Curve int

const (
	// Secp256k1 is the Koblitz curve used by Bitcoin and Ethereum.
	Secp256k1 Curve = iota

	// Ed25519 is the twisted Edwards curve used by Solana.
	Ed25519
)

func (c Curve) String() string {
	switch c {
	case Secp256k1:
		return "secp256k1"
	case Ed25519:
		return "ed25519"
	default:
		return fmt.Sprintf("curve(%d)", int(c))
	}
}

// ParseCurve parses a curve name as used on the command line.
func ParseCurve(s string) (Curve, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "secp256k1", "k1":
		return Secp256k1, nil
	case "ed25519":
		return Ed25519, nil
	default:
		return 0, inputErrf("parse curve", ErrMalformedKey, "unsupported curve %q", s)
	}
}

// Chain identifies one of the supported blockchains.
type Chain int

const (
	// Bitcoin uses P2PKH addresses and double SHA-256 transaction digests.
	Bitcoin Chain = iota

	// Ethereum uses Keccak-256 digests, EIP-55 addresses and recoverable
	// signatures.
	Ethereum

	// Solana signs raw messages with Ed25519 and uses the public key as
	// address.
	Solana
)

// Chains lists every supported chain in display order.
var Chains = []Chain{Bitcoin, Ethereum, Solana}

func (c Chain) String() string {
	switch c {
	case Bitcoin:
		return "bitcoin"
	case Ethereum:
		return "ethereum"
	case Solana:
		return "solana"
	default:
		return fmt.Sprintf("chain(%d)", int(c))
	}
}

// Curve returns the curve the chain signs with.
func (c Chain) Curve() Curve {
	if c == Solana {
		return Ed25519
	}
	return Secp256k1
}

// DefaultPath returns the BIP44 account path wallets use for the chain.
func (c Chain) DefaultPath() string {
	switch c {
	case Ethereum:
		return EthereumPath
	case Solana:
		return SolanaPath
	default:
		return BitcoinPath
	}
}

// ParseChain parses a chain name or ticker.
func ParseChain(s string) (Chain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "btc", "bitcoin":
		return Bitcoin, nil
	case "eth", "ethereum":
		return Ethereum, nil
	case "sol", "solana":
		return Solana, nil
	default:
		return 0, inputErrf("parse chain", ErrUnknownChain, "%q", s)
	}
}

// MessageDigest is the 32-byte hash an ECDSA signature commits to.
type MessageDigest [32]byte

// SHA256Digest returns the single SHA-256 of data as a MessageDigest.
func SHA256Digest(data []byte) MessageDigest {
	return sha256.Sum256(data)
}

// KeyPair holds a private key and the public key computed from it. The
// public key is always derived from the private key and cannot be set
// independently.
type KeyPair struct {
	curve        Curve
	private      [32]byte
	public       []byte
	uncompressed bool
}

// NewKeyPair builds a key pair from a 32-byte private key. For secp256k1 the
// key must be a scalar in [1, n-1] and the public key is kept in compressed
// form. For Ed25519 the private key is the RFC 8032 seed.
func NewKeyPair(curve Curve, privateKey []byte) (*KeyPair, error) {
	if len(privateKey) != 32 {
		return nil, inputErrf("new key pair", ErrMalformedKey, "private key must be 32 bytes, got %d", len(privateKey))
	}

	kp := &KeyPair{curve: curve}
	copy(kp.private[:], privateKey)

	switch curve {
	case Secp256k1:
		var scalar btcec.ModNScalar
		if overflow := scalar.SetByteSlice(privateKey); overflow || scalar.IsZero() {
			return nil, inputErrf("new key pair", ErrMalformedKey, "private key is not in [1, n-1]")
		}
		priv, _ := btcec.PrivKeyFromBytes(privateKey)
		kp.public = priv.PubKey().SerializeCompressed()
	case Ed25519:
		pub := ed25519.NewKeyFromSeed(privateKey).Public().(ed25519.PublicKey)
		kp.public = []byte(pub)
	default:
		return nil, inputErrf("new key pair", ErrMalformedKey, "unsupported curve %s", curve)
	}

	return kp, nil
}

// Curve returns the curve of the key pair.
func (k *KeyPair) Curve() Curve {
	return k.curve
}

// PrivateKey returns a copy of the 32-byte private key.
func (k *KeyPair) PrivateKey() []byte {
	out := make([]byte, 32)
	copy(out, k.private[:])
	return out
}

// PublicKey returns a copy of the public key: 33 bytes (compressed) or 65
// bytes (uncompressed) for secp256k1, 32 bytes for Ed25519.
func (k *KeyPair) PublicKey() []byte {
	out := make([]byte, len(k.public))
	copy(out, k.public)
	return out
}

// Uncompressed returns a copy of the key pair that reports its secp256k1
// public key in the 65-byte uncompressed form. Ed25519 pairs are returned
// unchanged.
func (k *KeyPair) Uncompressed() *KeyPair {
	if k.curve != Secp256k1 || k.uncompressed {
		return k
	}
	priv, _ := btcec.PrivKeyFromBytes(k.private[:])
	return &KeyPair{
		curve:        k.curve,
		private:      k.private,
		public:       priv.PubKey().SerializeUncompressed(),
		uncompressed: true,
	}
}

// UncompressedPublicKey returns the 65-byte 0x04-prefixed secp256k1 public
// key.
func (k *KeyPair) UncompressedPublicKey() ([]byte, error) {
	if k.curve != Secp256k1 {
		return nil, inputErrf("uncompressed public key", ErrCurveMismatch, "%s keys have no uncompressed form", k.curve)
	}
	priv, _ := btcec.PrivKeyFromBytes(k.private[:])
	return priv.PubKey().SerializeUncompressed(), nil
}

// btcecPrivateKey returns the btcec form of a secp256k1 private key.
func (k *KeyPair) btcecPrivateKey() *btcec.PrivateKey {
	priv, _ := btcec.PrivKeyFromBytes(k.private[:])
	return priv
}

// ed25519PrivateKey returns the expanded 64-byte Ed25519 private key.
func (k *KeyPair) ed25519PrivateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.private[:])
}

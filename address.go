// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	mrbase58 "github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

const (
	// EthereumAddressLength is the byte length of an Ethereum address.
	EthereumAddressLength = 20

	ethereumAddressPrefix = "0x"
)

// EncodeAddress derives the address of pub on chain.
func EncodeAddress(chain Chain, pub []byte) (string, error) {
	switch chain {
	case Bitcoin:
		return BitcoinAddress(pub)
	case Ethereum:
		return EthereumAddress(pub)
	case Solana:
		return SolanaAddress(pub)
	default:
		return "", inputErrf("encode address", ErrUnknownChain, "%s", chain)
	}
}

// BitcoinAddress returns the mainnet P2PKH address of a secp256k1 public
// key: Base58Check(0x00 || RIPEMD160(SHA256(compressed pubkey))). The key
// may be given compressed or uncompressed; it is always hashed compressed.
func BitcoinAddress(pub []byte) (string, error) {
	return BitcoinAddressForNet(pub, &chaincfg.MainNetParams)
}

// BitcoinAddressForNet is like BitcoinAddress with the version byte taken
// from net.
func BitcoinAddressForNet(pub []byte, net *chaincfg.Params) (string, error) {
	key, err := parseSecp256k1PublicKey("bitcoin address", pub)
	if err != nil {
		return "", err
	}
	hash := btcutil.Hash160(key.SerializeCompressed())
	return base58.CheckEncode(hash, net.PubKeyHashAddrID), nil
}

// DecodeBitcoinAddress decodes a Base58Check P2PKH address into its version
// byte and 20-byte public key hash. Checksum failures are input errors.
func DecodeBitcoinAddress(addr string) (version byte, hash []byte, err error) {
	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return 0, nil, inputErrf("decode bitcoin address", ErrMalformedAddress, "%q: %v", addr, err)
	}
	if len(payload) != 20 {
		return 0, nil, inputErrf("decode bitcoin address", ErrMalformedAddress, "%q: payload is %d bytes", addr, len(payload))
	}
	return version, payload, nil
}

// EthereumAddress returns the EIP-55 address of a secp256k1 public key: the
// last 20 bytes of Keccak-256 over the 64-byte uncompressed key body.
func EthereumAddress(pub []byte) (string, error) {
	raw, err := EthereumAddressBytes(pub)
	if err != nil {
		return "", err
	}
	return checksumHex(hex.EncodeToString(raw)), nil
}

// EthereumAddressBytes returns the raw 20-byte Ethereum address of pub.
func EthereumAddressBytes(pub []byte) ([]byte, error) {
	key, err := parseSecp256k1PublicKey("ethereum address", pub)
	if err != nil {
		return nil, err
	}
	// Drop the 0x04 prefix: the address commits to X || Y only.
	hash := Keccak256(key.SerializeUncompressed()[1:])
	return hash[len(hash)-EthereumAddressLength:], nil
}

// ToChecksumAddress applies the EIP-55 mixed-case checksum to a hex address.
// The input may be 0x-prefixed or bare and in any case. Anything that is not
// exactly 20 bytes of hex is rejected.
func ToChecksumAddress(addr string) (string, error) {
	body, err := ethereumAddressBody(addr)
	if err != nil {
		return "", err
	}
	return checksumHex(body), nil
}

// IsChecksumAddress reports whether addr is a well-formed address already in
// its EIP-55 mixed-case form.
func IsChecksumAddress(addr string) bool {
	sum, err := ToChecksumAddress(addr)
	if err != nil {
		return false
	}
	return strings.HasPrefix(addr, ethereumAddressPrefix) && sum == addr
}

// ethereumAddressBody validates addr and returns its 40 lowercase hex digits.
func ethereumAddressBody(addr string) (string, error) {
	body := addr
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		body = body[2:]
	}
	if len(body) != 2*EthereumAddressLength {
		return "", inputErrf("checksum address", ErrMalformedAddress, "%q is not %d hex characters", addr, 2*EthereumAddressLength)
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", inputErrf("checksum address", ErrMalformedAddress, "%q: %v", addr, err)
	}
	return strings.ToLower(body), nil
}

// checksumHex applies EIP-55 to 40 lowercase hex digits: a letter is
// uppercased when the matching nibble of Keccak-256(ascii hex) is >= 8.
func checksumHex(lower string) string {
	hash := Keccak256([]byte(lower))

	out := make([]byte, len(ethereumAddressPrefix)+len(lower))
	copy(out, ethereumAddressPrefix)
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if c >= 'a' && c <= 'f' && nibble >= 8 {
			c -= 'a' - 'A'
		}
		out[len(ethereumAddressPrefix)+i] = c
	}
	return string(out)
}

// SolanaAddress returns the Base58 encoding of a 32-byte Ed25519 public key.
// No hashing is involved, so the address decodes back to the key.
func SolanaAddress(pub []byte) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", inputErrf("solana address", ErrMalformedKey, "public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	return mrbase58.Encode(pub), nil
}

// DecodeSolanaAddress reverses SolanaAddress.
func DecodeSolanaAddress(addr string) ([]byte, error) {
	pub, err := mrbase58.Decode(addr)
	if err != nil {
		return nil, inputErrf("decode solana address", ErrMalformedAddress, "%q: %v", addr, err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, inputErrf("decode solana address", ErrMalformedAddress, "%q decodes to %d bytes", addr, len(pub))
	}
	return pub, nil
}

// Keccak256 returns the original Keccak-256 hash (pre-FIPS 202 padding) of
// the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

func parseSecp256k1PublicKey(op string, pub []byte) (*btcec.PublicKey, error) {
	switch len(pub) {
	case secp256k1.PubKeyBytesLenCompressed, secp256k1.PubKeyBytesLenUncompressed:
	default:
		return nil, inputErrf(op, ErrMalformedKey, "secp256k1 public key must be 33 or 65 bytes, got %d", len(pub))
	}
	key, err := btcec.ParsePubKey(pub)
	if err != nil {
		return nil, inputErrf(op, ErrMalformedKey, "%v", err)
	}
	return key, nil
}

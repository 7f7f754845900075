// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// mnemonicEntropyBytes maps a BIP39 word count to its entropy size.
var mnemonicEntropyBytes = map[int]int{
	12: 16, // 128 bits
	15: 20, // 160 bits
	18: 24, // 192 bits
	21: 28, // 224 bits
	24: 32, // 256 bits
}

// NewMnemonic encodes entropy as a BIP39 mnemonic in the active word list.
// Entropy must be 16, 20, 24, 28 or 32 bytes.
func NewMnemonic(entropy []byte) (string, error) {
	words, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", inputErrf("new mnemonic", ErrUnusableSeed, "%v", err)
	}
	return words, nil
}

// combinePassphrase XORs the SHA-256 of passphrase into keySeed.
func combinePassphrase(keySeed []byte, passphrase string) []byte {
	passphraseHash := sha256.Sum256([]byte(passphrase))

	combined := make([]byte, len(keySeed))
	for i := range keySeed {
		combined[i] = keySeed[i] ^ passphraseHash[i]
	}

	return combined
}

// MnemonicFromKey deterministically turns an Ed25519 private key, typically
// an SSH key, into a BIP39 mnemonic of wordCount words. The key cannot be
// recovered from the mnemonic unless wordCount is 24.
//
// If passphrase is non-empty its SHA-256 is XORed into the key seed first.
//
// For 24 words the (combined) 32-byte seed is used as entropy directly.
// Other lengths hash the seed prefixed with the big-endian uint16 word count,
// so each length yields unrelated words instead of a truncation of the same
// phrase.
//
// Valid word counts are 12, 15, 18, 21 and 24.
func MnemonicFromKey(key ed25519.PrivateKey, wordCount int, passphrase string) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", inputErrf("mnemonic from key", ErrMalformedKey, "ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}

	entropySize, ok := mnemonicEntropyBytes[wordCount]
	if !ok {
		return "", inputErrf("mnemonic from key", ErrUnusableSeed, "invalid word count: %d (must be 12, 15, 18, 21, or 24)", wordCount)
	}

	seed := key.Seed()
	if passphrase != "" {
		seed = combinePassphrase(seed, passphrase)
	}

	if wordCount == 24 {
		return NewMnemonic(seed)
	}

	prefixed := make([]byte, 2, 2+len(seed))
	binary.BigEndian.PutUint16(prefixed, uint16(wordCount))
	prefixed = append(prefixed, seed...)

	hash := sha256.Sum256(prefixed)
	return NewMnemonic(hash[:entropySize])
}

// MnemonicToSeed validates mnemonic against the active word list and returns
// its 64-byte BIP39 seed for passphrase.
func MnemonicToSeed(mnemonic, passphrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, inputErrf("mnemonic to seed", ErrUnusableSeed, "invalid mnemonic: %v", err)
	}
	return seed, nil
}

// Account is a derived key with its chain address.
type Account struct {
	Chain   Chain
	Path    Path
	Node    *Node
	Address string
}

// DeriveAccount derives the key at path for chain from seed and encodes its
// address.
func DeriveAccount(chain Chain, seed []byte, path Path) (*Account, error) {
	node, err := Derive(chain.Curve(), seed, path)
	if err != nil {
		return nil, err
	}
	addr, err := EncodeAddress(chain, node.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("could not encode %s address: %w", chain, err)
	}
	return &Account{Chain: chain, Path: path, Node: node, Address: addr}, nil
}

// DeriveDefaultAccounts derives the account at each chain's default BIP44
// path, in the order of Chains.
func DeriveDefaultAccounts(seed []byte) ([]*Account, error) {
	accounts := make([]*Account, 0, len(Chains))
	for _, chain := range Chains {
		acct, err := DeriveAccount(chain, seed, MustParsePath(chain.DefaultPath()))
		if err != nil {
			return nil, fmt.Errorf("could not derive %s account: %w", chain, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

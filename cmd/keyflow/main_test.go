package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/complex-gh/keyflow"
	"github.com/matryer/is"
	"github.com/tyler-smith/go-bip39/wordlists"
	"golang.org/x/crypto/ssh"
)

// TestParseWordCounts tests parsing of the --words flag
func TestParseWordCounts(t *testing.T) {
	is := is.New(t)

	counts, err := parseWordCounts("")
	is.NoErr(err)
	is.Equal(counts, []int{12, 15, 18, 21, 24})

	counts, err = parseWordCounts("12, 24")
	is.NoErr(err)
	is.Equal(counts, []int{12, 24})

	_, err = parseWordCounts("16")
	is.True(err != nil)

	_, err = parseWordCounts("twelve")
	is.True(err != nil)
}

// TestParseChains tests parsing of the --chain flag
func TestParseChains(t *testing.T) {
	is := is.New(t)

	chains, err := parseChains("")
	is.NoErr(err)
	is.Equal(chains, keyflow.Chains)

	chains, err = parseChains("sol,eth,solana")
	is.NoErr(err)
	is.Equal(chains, []keyflow.Chain{keyflow.Solana, keyflow.Ethereum})

	_, err = parseChains("doge")
	is.True(errors.Is(err, keyflow.ErrUnknownChain))
}

// TestParseChainID tests parsing of the --chain-id flag
func TestParseChainID(t *testing.T) {
	is := is.New(t)

	id, err := parseChainID("")
	is.NoErr(err)
	is.True(id == nil)

	id, err = parseChainID("137")
	is.NoErr(err)
	is.Equal(id.Int64(), int64(137))

	id, err = parseChainID("0x1")
	is.NoErr(err)
	is.Equal(id.Int64(), int64(1))

	_, err = parseChainID("0")
	is.True(err != nil)
}

// TestGetWordlist tests language lookup by tag and by English name
func TestGetWordlist(t *testing.T) {
	is := is.New(t)

	is.Equal(getWordlist("en"), wordlists.English)
	is.Equal(getWordlist("japanese"), wordlists.Japanese)
	is.Equal(getWordlist("es-419"), wordlists.Spanish)
	is.True(getWordlist("klingon") == nil)
}

// TestParsePrivateKeyInput tests the accepted private key encodings
func TestParsePrivateKeyInput(t *testing.T) {
	is := is.New(t)

	raw := strings.Repeat("01", 32)
	want, _ := hex.DecodeString(raw)

	for _, chain := range keyflow.Chains {
		got, err := parsePrivateKeyInput(chain, "0x"+raw)
		is.NoErr(err)
		is.Equal(got, want)
	}

	kp, err := keyflow.NewKeyPair(keyflow.Secp256k1, want)
	is.NoErr(err)
	wif, err := formatPrivateKey(keyflow.Bitcoin, kp)
	is.NoErr(err)
	got, err := parsePrivateKeyInput(keyflow.Bitcoin, wif)
	is.NoErr(err)
	is.Equal(got, want)

	ed, err := keyflow.NewKeyPair(keyflow.Ed25519, want)
	is.NoErr(err)
	pair, err := formatPrivateKey(keyflow.Solana, ed)
	is.NoErr(err)
	got, err = parsePrivateKeyInput(keyflow.Solana, pair)
	is.NoErr(err)
	is.Equal(got, want)

	_, err = parsePrivateKeyInput(keyflow.Ethereum, "0x1234")
	is.True(err != nil)
}

// TestParseSignatureInput tests that every printed signature form parses
// back and verifies
func TestParseSignatureInput(t *testing.T) {
	priv := make([]byte, 32)
	priv[31] = 0x07
	payload := []byte("keyflow cli")

	for _, chain := range keyflow.Chains {
		t.Run(chain.String(), func(t *testing.T) {
			is := is.New(t)

			scheme, err := keyflow.ForChain(chain)
			is.NoErr(err)
			kp, err := keyflow.NewKeyPair(chain.Curve(), priv)
			is.NoErr(err)
			addr, err := scheme.Address(kp.PublicKey())
			is.NoErr(err)

			sig, err := scheme.Sign(kp, payload)
			is.NoErr(err)

			var inputs []string
			switch sig := sig.(type) {
			case *keyflow.ECDSASignature:
				inputs = append(inputs,
					hex.EncodeToString(sig.Bytes()),
					hex.EncodeToString(sig.Bytes()[:64]),
					hex.EncodeToString(sig.DER()),
				)
				if chain == keyflow.Bitcoin {
					inputs = append(inputs, base64.StdEncoding.EncodeToString(sig.Compact()))
				}
			case keyflow.EdDSASignature:
				inputs = append(inputs, sig.String(), hex.EncodeToString(sig.Bytes()))
			}

			for _, in := range inputs {
				parsed, err := parseSignatureInput(scheme, in, payload, addr, nil)
				is.NoErr(err)
				res, err := scheme.Verify(nil, addr, payload, parsed)
				is.NoErr(err)
				is.True(res.Valid)
			}
		})
	}
}

// TestParseSignatureInput_EIP155 tests an Ethereum signature with an EIP-155 v
func TestParseSignatureInput_EIP155(t *testing.T) {
	is := is.New(t)

	scheme, err := keyflow.ForChain(keyflow.Ethereum)
	is.NoErr(err)
	priv := make([]byte, 32)
	priv[31] = 0x09
	kp, err := keyflow.NewKeyPair(keyflow.Secp256k1, priv)
	is.NoErr(err)
	addr, err := scheme.Address(kp.PublicKey())
	is.NoErr(err)

	payload := []byte("replay protected")
	sig, err := scheme.Sign(kp, payload)
	is.NoErr(err)
	ecSig := sig.(*keyflow.ECDSASignature)

	chainID, err := parseChainID("137")
	is.NoErr(err)
	v := ecSig.V(chainID)
	rsv := append(ecSig.Bytes()[:64:64], v.Bytes()...)

	parsed, err := parseSignatureInput(scheme, "0x"+hex.EncodeToString(rsv), payload, addr, chainID)
	is.NoErr(err)
	is.Equal(parsed.(*keyflow.ECDSASignature).RecoveryID, ecSig.RecoveryID)

	// A 64-byte signature needs an address to search the recovery id.
	_, err = parseSignatureInput(scheme, hex.EncodeToString(rsv[:64]), payload, "", nil)
	is.True(err != nil)
}

// TestReadEd25519Key_NotProtected tests that unprotected SSH keys are refused
func TestReadEd25519Key_NotProtected(t *testing.T) {
	is := is.New(t)

	seed := make([]byte, ed25519.SeedSize)
	key := ed25519.NewKeyFromSeed(seed)
	block, err := ssh.MarshalPrivateKey(key, "test")
	is.NoErr(err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	is.NoErr(os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	_, err = readEd25519Key(path)
	is.True(errors.Is(err, errKeyNotProtected))

	_, err = readEd25519Key(filepath.Join(t.TempDir(), "missing"))
	is.True(errors.Is(err, os.ErrNotExist))
}

// TestResolveKeyPath tests key path resolution
func TestResolveKeyPath(t *testing.T) {
	is := is.New(t)

	path, err := resolveKeyPath("-")
	is.NoErr(err)
	is.Equal(path, "-")

	existing := filepath.Join(t.TempDir(), "key")
	is.NoErr(os.WriteFile(existing, []byte("x"), 0o600))
	path, err = resolveKeyPath(existing)
	is.NoErr(err)
	is.Equal(path, existing)

	_, err = resolveKeyPath(filepath.Join(t.TempDir(), "missing", "key"))
	is.True(errors.Is(err, os.ErrNotExist))

	_, err = resolveKeyPath("./missing-key")
	is.True(errors.Is(err, os.ErrNotExist))
}

// TestResolveKeyPath_SSHDir tests that a bare file name is found in ~/.ssh
func TestResolveKeyPath_SSHDir(t *testing.T) {
	is := is.New(t)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Chdir(t.TempDir())

	sshDir := filepath.Join(home, ".ssh")
	is.NoErr(os.MkdirAll(sshDir, 0o700))
	key := filepath.Join(sshDir, "id_keyflow")
	is.NoErr(os.WriteFile(key, []byte("x"), 0o600))

	path, err := resolveKeyPath("id_keyflow")
	is.NoErr(err)
	is.Equal(path, key)

	_, err = resolveKeyPath("id_missing")
	is.True(errors.Is(err, os.ErrNotExist))
}

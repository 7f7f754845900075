// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/matryer/is"
)

// TestForChain tests the sign and verify round trip of every scheme
func TestForChain(t *testing.T) {
	seed := repeatByte(0x03, RecommendedSeedBytes)
	payload := []byte("keyflow payload")

	for _, chain := range Chains {
		t.Run(chain.String(), func(t *testing.T) {
			is := is.New(t)

			scheme, err := ForChain(chain)
			is.NoErr(err)
			is.Equal(scheme.Chain(), chain)
			is.Equal(scheme.Curve(), chain.Curve())

			acct, err := DeriveAccount(chain, seed, MustParsePath(chain.DefaultPath()))
			is.NoErr(err)
			kp, err := acct.Node.KeyPair()
			is.NoErr(err)

			addr, err := scheme.Address(kp.PublicKey())
			is.NoErr(err)
			is.Equal(addr, acct.Address)

			sig, err := scheme.Sign(kp, payload)
			is.NoErr(err)
			is.Equal(sig.Curve(), chain.Curve())

			// By address, by key and by both.
			res, err := scheme.Verify(nil, addr, payload, sig)
			is.NoErr(err)
			is.True(res.Valid)

			res, err = scheme.Verify(kp.PublicKey(), "", payload, sig)
			is.NoErr(err)
			is.True(res.Valid)

			res, err = scheme.Verify(kp.PublicKey(), addr, payload, sig)
			is.NoErr(err)
			is.True(res.Valid)

			res, err = scheme.Verify(nil, addr, []byte("other payload"), sig)
			is.NoErr(err)
			is.True(!res.Valid)

			_, err = scheme.Verify(nil, "", payload, sig)
			is.True(err != nil)
		})
	}
}

// TestForChain_Digests tests the chain digest functions
func TestForChain_Digests(t *testing.T) {
	is := is.New(t)

	payload := []byte("digest me")

	btc, err := ForChain(Bitcoin)
	is.NoErr(err)
	d, err := btc.Digest(payload)
	is.NoErr(err)
	first := sha256.Sum256(payload)
	is.Equal(d, MessageDigest(sha256.Sum256(first[:])))
	is.Equal(d[:], chainhash.DoubleHashB(payload))

	eth, err := ForChain(Ethereum)
	is.NoErr(err)
	d, err = eth.Digest(payload)
	is.NoErr(err)
	is.Equal(d[:], Keccak256(payload))

	sol, err := ForChain(Solana)
	is.NoErr(err)
	_, err = sol.Digest(payload)
	is.True(errors.Is(err, ErrCurveMismatch))
}

// TestForChain_Unknown tests an unsupported chain
func TestForChain_Unknown(t *testing.T) {
	is := is.New(t)

	_, err := ForChain(Chain(99))
	is.True(errors.Is(err, ErrUnknownChain))
}

// TestScheme_WrongSignatureType tests that signatures from the other curve
// are rejected
func TestScheme_WrongSignatureType(t *testing.T) {
	is := is.New(t)

	ed, err := NewKeyPair(Ed25519, repeatByte(0x02, 32))
	is.NoErr(err)
	sol, err := ForChain(Solana)
	is.NoErr(err)
	edSig, err := sol.Sign(ed, []byte("msg"))
	is.NoErr(err)

	eth, err := ForChain(Ethereum)
	is.NoErr(err)
	_, err = eth.Verify(nil, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", []byte("msg"), edSig)
	is.True(errors.Is(err, ErrCurveMismatch))

	k1, err := NewKeyPair(Secp256k1, repeatByte(0x01, 32))
	is.NoErr(err)
	ecSig, err := eth.Sign(k1, []byte("msg"))
	is.NoErr(err)

	_, err = sol.Verify(ed.PublicKey(), "", []byte("msg"), ecSig)
	is.True(errors.Is(err, ErrCurveMismatch))

	_, err = eth.Sign(ed, []byte("msg"))
	var sigErr *SignatureError
	is.True(errors.As(err, &sigErr))
}

// TestScheme_KeyAddressDisagree tests that a key and an address for
// different signers cannot be verified together
func TestScheme_KeyAddressDisagree(t *testing.T) {
	is := is.New(t)

	k1, err := NewKeyPair(Secp256k1, repeatByte(0x01, 32))
	is.NoErr(err)
	btc, err := ForChain(Bitcoin)
	is.NoErr(err)

	sig, err := btc.Sign(k1, []byte("msg"))
	is.NoErr(err)

	_, err = btc.Verify(k1.PublicKey(), "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", []byte("msg"), sig)
	is.True(errors.Is(err, ErrMalformedAddress))
}

// TestScheme_EmptyPayload tests that an empty payload cannot be signed
func TestScheme_EmptyPayload(t *testing.T) {
	is := is.New(t)

	k1, err := NewKeyPair(Secp256k1, repeatByte(0x01, 32))
	is.NoErr(err)

	for _, chain := range []Chain{Bitcoin, Ethereum} {
		scheme, err := ForChain(chain)
		is.NoErr(err)
		_, err = scheme.Sign(k1, nil)
		is.True(errors.Is(err, ErrMissingDigest))
	}
}

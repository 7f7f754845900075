// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Scheme bundles the address, digest and signature pipeline of one chain.
// Digests are always computed from the raw payload; a Scheme never accepts
// a precomputed digest.
type Scheme interface {
	// Chain returns the chain the scheme implements.
	Chain() Chain

	// Curve returns the curve the chain signs with.
	Curve() Curve

	// Address encodes a public key as a chain address.
	Address(pub []byte) (string, error)

	// Digest hashes payload the way the chain does before signing. Solana
	// signs raw messages and returns an error.
	Digest(payload []byte) (MessageDigest, error)

	// Sign signs payload with kp.
	Sign(kp *KeyPair, payload []byte) (Signature, error)

	// Verify checks sig over payload. Either pub or address identifies the
	// signer; when both are given they must agree.
	Verify(pub []byte, address string, payload []byte, sig Signature) (VerifyResult, error)
}

// ForChain returns the Scheme for chain.
func ForChain(chain Chain) (Scheme, error) {
	switch chain {
	case Bitcoin:
		return bitcoinScheme{}, nil
	case Ethereum:
		return ethereumScheme{}, nil
	case Solana:
		return solanaScheme{}, nil
	default:
		return nil, inputErrf("scheme", ErrUnknownChain, "%s", chain)
	}
}

// bitcoinScheme signs the double SHA-256 of a serialized sighash preimage.
type bitcoinScheme struct{}

func (bitcoinScheme) Chain() Chain { return Bitcoin }

func (bitcoinScheme) Curve() Curve { return Secp256k1 }

func (bitcoinScheme) Address(pub []byte) (string, error) {
	return BitcoinAddress(pub)
}

func (bitcoinScheme) Digest(payload []byte) (MessageDigest, error) {
	return MessageDigest(chainhash.DoubleHashH(payload)), nil
}

func (s bitcoinScheme) Sign(kp *KeyPair, payload []byte) (Signature, error) {
	return signRecoverable(s, kp, payload)
}

func (s bitcoinScheme) Verify(pub []byte, address string, payload []byte, sig Signature) (VerifyResult, error) {
	return verifyRecoverable(s, pub, address, payload, sig)
}

// ethereumScheme signs the Keccak-256 of an RLP signing payload.
type ethereumScheme struct{}

func (ethereumScheme) Chain() Chain { return Ethereum }

func (ethereumScheme) Curve() Curve { return Secp256k1 }

func (ethereumScheme) Address(pub []byte) (string, error) {
	return EthereumAddress(pub)
}

func (ethereumScheme) Digest(payload []byte) (MessageDigest, error) {
	return MessageDigest(Keccak256(payload)), nil
}

func (s ethereumScheme) Sign(kp *KeyPair, payload []byte) (Signature, error) {
	return signRecoverable(s, kp, payload)
}

func (s ethereumScheme) Verify(pub []byte, address string, payload []byte, sig Signature) (VerifyResult, error) {
	return verifyRecoverable(s, pub, address, payload, sig)
}

// signRecoverable signs for a secp256k1 chain. A signature whose recovery
// id could not be confirmed is not usable on either chain and is reported
// as a SignatureError.
func signRecoverable(s Scheme, kp *KeyPair, payload []byte) (Signature, error) {
	if len(payload) == 0 {
		return nil, &SignatureError{Chain: s.Chain(), Err: ErrMissingDigest}
	}
	digest, err := s.Digest(payload)
	if err != nil {
		return nil, &SignatureError{Chain: s.Chain(), Err: err}
	}
	sig, err := SignDigest(s.Chain(), kp, digest)
	if err != nil {
		return nil, err
	}
	if !sig.Recovered {
		return nil, &SignatureError{Chain: s.Chain(), Err: ErrRecoveryNotFound}
	}
	return sig, nil
}

func verifyRecoverable(s Scheme, pub []byte, address string, payload []byte, sig Signature) (VerifyResult, error) {
	ecSig, ok := sig.(*ECDSASignature)
	if !ok || ecSig == nil {
		return VerifyResult{}, inputErrf("verify", ErrCurveMismatch, "%s expects an ECDSA signature, got %T", s.Chain(), sig)
	}
	digest, err := s.Digest(payload)
	if err != nil {
		return VerifyResult{}, err
	}

	if address == "" && len(pub) == 0 {
		return VerifyResult{}, inputErrf("verify", ErrMalformedKey, "a public key or an address is required")
	}

	if len(pub) > 0 {
		if err := checkPubMatchesAddress(s, pub, address); err != nil {
			return VerifyResult{}, err
		}
		result, err := VerifyECDSA(pub, digest, ecSig)
		if err != nil || !result.Valid {
			return result, err
		}
		if address == "" {
			address, _ = s.Address(pub)
		}
	}

	return VerifyRecovered(s.Chain(), digest, ecSig, address)
}

// solanaScheme signs raw messages with Ed25519.
type solanaScheme struct{}

func (solanaScheme) Chain() Chain { return Solana }

func (solanaScheme) Curve() Curve { return Ed25519 }

func (solanaScheme) Address(pub []byte) (string, error) {
	return SolanaAddress(pub)
}

func (solanaScheme) Digest([]byte) (MessageDigest, error) {
	return MessageDigest{}, inputErrf("digest", ErrCurveMismatch, "solana signs the raw message")
}

func (solanaScheme) Sign(kp *KeyPair, payload []byte) (Signature, error) {
	sig, err := SignEd25519(kp, payload)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func (s solanaScheme) Verify(pub []byte, address string, payload []byte, sig Signature) (VerifyResult, error) {
	edSig, ok := sig.(EdDSASignature)
	if !ok {
		return VerifyResult{}, inputErrf("verify", ErrCurveMismatch, "solana expects an EdDSA signature, got %T", sig)
	}
	if len(pub) == 0 {
		if address == "" {
			return VerifyResult{}, inputErrf("verify", ErrMalformedKey, "a public key or an address is required")
		}
		return VerifySolana(address, payload, edSig)
	}
	if err := checkPubMatchesAddress(s, pub, address); err != nil {
		return VerifyResult{}, err
	}
	return VerifyEd25519(pub, payload, edSig)
}

// checkPubMatchesAddress fails when both a key and an address are given and
// the key does not encode to the address.
func checkPubMatchesAddress(s Scheme, pub []byte, address string) error {
	if address == "" {
		return nil
	}
	derived, err := s.Address(pub)
	if err != nil {
		return err
	}
	if !sameAddress(s.Chain(), derived, address) {
		return inputErrf("verify", ErrMalformedAddress, "public key encodes to %s, not %s", derived, address)
	}
	return nil
}

func sameAddress(chain Chain, a, b string) bool {
	if chain == Ethereum {
		return strings.EqualFold(a, b)
	}
	return a == b
}

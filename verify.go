// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"crypto/ed25519"
	"math/big"
	"strings"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// VerifyResult is the outcome of a verification that ran to completion. A
// signature that does not verify is reported here, not as an error.
type VerifyResult struct {
	Valid  bool
	Reason Reason

	// RecoveredAddress is the address recovered from an ECDSA signature, set
	// whenever recovery succeeded.
	RecoveredAddress string
}

// Err returns nil for a valid result and a *VerificationError otherwise.
func (r VerifyResult) Err() error {
	if r.Valid {
		return nil
	}
	return &VerificationError{Reason: r.Reason, RecoveredAddress: r.RecoveredAddress}
}

func validResult(recovered string) VerifyResult {
	return VerifyResult{Valid: true, Reason: ReasonValid, RecoveredAddress: recovered}
}

func invalidResult(reason Reason, recovered string) VerifyResult {
	return VerifyResult{Reason: reason, RecoveredAddress: recovered}
}

// RecoverPublicKey computes the public key that produced (r, s) over digest,
// choosing the candidate point R by recoveryID:
//
//	R = point with x = r and y parity = recoveryID
//	Q = r^-1 (s*R - e*G)
//
// Only the x = r candidates are tried; r + n lies outside the field with
// overwhelming probability.
func RecoverPublicKey(digest MessageDigest, r, s *big.Int, recoveryID byte) (*btcec.PublicKey, error) {
	if err := checkScalarRange(r, s); err != nil {
		return nil, err
	}
	if recoveryID > 1 {
		return nil, inputErrf("recover public key", ErrMalformedSignature, "recovery id %d is not 0 or 1", recoveryID)
	}

	compressedR := make([]byte, btcec.PubKeyBytesLenCompressed)
	compressedR[0] = 0x02 + recoveryID
	r.FillBytes(compressedR[1:])
	point, err := btcec.ParsePubKey(compressedR)
	if err != nil {
		return nil, inputErrf("recover public key", ErrMalformedSignature, "r is not the x-coordinate of a curve point")
	}

	curve := btcec.S256()
	n := curve.Params().N

	e := new(big.Int).SetBytes(digest[:])
	e.Mod(e, n)
	rInv := new(big.Int).ModInverse(r, n)

	// Q = u1*G + u2*R with u1 = -e/r and u2 = s/r.
	u1 := new(big.Int).Neg(e)
	u1.Mul(u1, rInv)
	u1.Mod(u1, n)
	u2 := new(big.Int).Mul(s, rInv)
	u2.Mod(u2, n)

	x1, y1 := curve.ScalarBaseMult(u1.Bytes())
	x2, y2 := curve.ScalarMult(point.X(), point.Y(), u2.Bytes())
	qx, qy := curve.Add(x1, y1, x2, y2)
	if qx.Sign() == 0 && qy.Sign() == 0 {
		return nil, inputErrf("recover public key", ErrMalformedSignature, "recovered point is at infinity")
	}

	uncompressed := make([]byte, secp256k1.PubKeyBytesLenUncompressed)
	uncompressed[0] = 0x04
	qx.FillBytes(uncompressed[1:33])
	qy.FillBytes(uncompressed[33:65])
	pub, err := btcec.ParsePubKey(uncompressed)
	if err != nil {
		return nil, inputErrf("recover public key", ErrMalformedSignature, "%v", err)
	}
	return pub, nil
}

// VerifyRecovered recovers the signer of digest from sig and compares its
// chain address with signerAddress. Ethereum addresses compare
// case-insensitively. An error is returned only when verification cannot
// run: a malformed address, out-of-range scalars or a non-secp256k1 chain.
func VerifyRecovered(chain Chain, digest MessageDigest, sig *ECDSASignature, signerAddress string) (VerifyResult, error) {
	if chain.Curve() != Secp256k1 {
		return VerifyResult{}, inputErrf("verify", ErrCurveMismatch, "%s does not use recoverable signatures", chain)
	}
	if sig == nil {
		return VerifyResult{}, inputErrf("verify", ErrMalformedSignature, "signature is required")
	}
	if err := checkScalarRange(sig.R, sig.S); err != nil {
		return VerifyResult{}, err
	}

	switch chain {
	case Ethereum:
		if _, err := ethereumAddressBody(signerAddress); err != nil {
			return VerifyResult{}, err
		}
	case Bitcoin:
		if _, _, err := DecodeBitcoinAddress(signerAddress); err != nil {
			return VerifyResult{}, err
		}
	}

	pub, err := RecoverPublicKey(digest, sig.R, sig.S, sig.RecoveryID)
	if err != nil {
		log.Debugf("Recovery with id %d failed: %v", sig.RecoveryID, err)
		return invalidResult(ReasonInvalidSignature, ""), nil
	}

	recovered, err := EncodeAddress(chain, pub.SerializeCompressed())
	if err != nil {
		return VerifyResult{}, err
	}

	match := recovered == signerAddress
	if chain == Ethereum {
		match = strings.EqualFold(recovered, signerAddress)
	}
	if !match {
		return invalidResult(ReasonAddressMismatch, recovered), nil
	}

	return validResult(recovered), nil
}

// VerifyECDSA checks sig over digest against a known secp256k1 public key.
// The recovery id is ignored.
func VerifyECDSA(pub []byte, digest MessageDigest, sig *ECDSASignature) (VerifyResult, error) {
	key, err := parseSecp256k1PublicKey("verify", pub)
	if err != nil {
		return VerifyResult{}, err
	}
	if sig == nil {
		return VerifyResult{}, inputErrf("verify", ErrMalformedSignature, "signature is required")
	}
	if err := checkScalarRange(sig.R, sig.S); err != nil {
		return VerifyResult{}, err
	}

	var r, s btcec.ModNScalar
	r.SetByteSlice(sig.R.Bytes())
	s.SetByteSlice(sig.S.Bytes())
	if !ecdsa.NewSignature(&r, &s).Verify(digest[:], key) {
		return invalidResult(ReasonInvalidSignature, ""), nil
	}
	return validResult(""), nil
}

// VerifyEd25519 checks an Ed25519 signature over the raw message. The public
// key must decode to a point on the curve.
func VerifyEd25519(pub []byte, message []byte, sig EdDSASignature) (VerifyResult, error) {
	if len(pub) != ed25519.PublicKeySize {
		return VerifyResult{}, inputErrf("verify", ErrMalformedKey, "ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return VerifyResult{}, inputErrf("verify", ErrMalformedKey, "ed25519 public key is not a curve point")
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), message, sig[:]) {
		return invalidResult(ReasonInvalidSignature, ""), nil
	}
	return validResult(""), nil
}

// VerifySolana decodes a Solana address and verifies sig over message with
// the public key it encodes.
func VerifySolana(address string, message []byte, sig EdDSASignature) (VerifyResult, error) {
	pub, err := DecodeSolanaAddress(address)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyEd25519(pub, message, sig)
}

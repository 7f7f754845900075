// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"crypto/ed25519"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	mrbase58 "github.com/mr-tron/base58"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	// secp256k1N is the order of the secp256k1 base point. Normalization and
	// recovery use this exact constant.
	secp256k1N, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)

	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

const (
	// legacyVOffset is added to the recovery id in pre-EIP-155 Ethereum
	// signatures and Bitcoin compact signatures.
	legacyVOffset = 27

	// eip155VOffset is added to recoveryID + 2*chainID under EIP-155.
	eip155VOffset = 35

	// compactCompressedFlag marks a Bitcoin compact signature as belonging
	// to a compressed public key.
	compactCompressedFlag = 4
)

// CurveOrder returns a copy of the secp256k1 group order n.
func CurveOrder() *big.Int {
	return new(big.Int).Set(secp256k1N)
}

// Signature is either an *ECDSASignature or an EdDSASignature.
type Signature interface {
	// Curve returns the curve the signature was made on.
	Curve() Curve

	// Bytes returns the wire form: r || s || recoveryID for ECDSA, the 64
	// raw bytes for EdDSA.
	Bytes() []byte

	signature()
}

// ECDSASignature is a secp256k1 signature with its recovery id.
type ECDSASignature struct {
	R *big.Int
	S *big.Int

	// RecoveryID selects which of the two candidate public keys with
	// x-coordinate R signed the digest.
	RecoveryID byte

	// Recovered is true only when RecoveryID was confirmed by recovering
	// the signer's address. An unconfirmed id is always 0.
	Recovered bool
}

func (*ECDSASignature) signature() {}

// Curve returns Secp256k1.
func (*ECDSASignature) Curve() Curve { return Secp256k1 }

// Bytes returns the 65-byte r || s || recoveryID form.
func (sig *ECDSASignature) Bytes() []byte {
	out := make([]byte, 65)
	sig.R.FillBytes(out[0:32])
	sig.S.FillBytes(out[32:64])
	out[64] = sig.RecoveryID
	return out
}

// IsLowS reports whether S is in the lower half of the curve order.
func (sig *ECDSASignature) IsLowS() bool {
	return sig.S.Cmp(secp256k1HalfN) <= 0
}

// V returns the Ethereum v value for chainID. A nil chainID gives the
// pre-EIP-155 value 27 + recoveryID.
func (sig *ECDSASignature) V(chainID *big.Int) *big.Int {
	return EncodeV(sig.RecoveryID, chainID)
}

// DER returns the strict DER encoding Bitcoin scripts carry.
func (sig *ECDSASignature) DER() []byte {
	var r, s btcec.ModNScalar
	r.SetByteSlice(sig.R.Bytes())
	s.SetByteSlice(sig.S.Bytes())
	return ecdsa.NewSignature(&r, &s).Serialize()
}

// Compact returns the 65-byte Bitcoin compact form
// <27 + recoveryID + 4><R><S> for a compressed public key.
func (sig *ECDSASignature) Compact() []byte {
	out := make([]byte, 65)
	out[0] = legacyVOffset + compactCompressedFlag + sig.RecoveryID
	sig.R.FillBytes(out[1:33])
	sig.S.FillBytes(out[33:65])
	return out
}

func (sig *ECDSASignature) String() string {
	return fmt.Sprintf("r=%064x s=%064x recovery_id=%d", sig.R, sig.S, sig.RecoveryID)
}

// EdDSASignature is a 64-byte Ed25519 signature.
type EdDSASignature [ed25519.SignatureSize]byte

func (EdDSASignature) signature() {}

// Curve returns Ed25519.
func (EdDSASignature) Curve() Curve { return Ed25519 }

// Bytes returns a copy of the raw signature.
func (sig EdDSASignature) Bytes() []byte {
	out := make([]byte, len(sig))
	copy(out, sig[:])
	return out
}

// String returns the Base58 form Solana tooling displays.
func (sig EdDSASignature) String() string {
	return mrbase58.Encode(sig[:])
}

// NormalizeS maps s to the lower half of the curve order: values above n/2
// are replaced by n - s. Applying it twice changes nothing.
func NormalizeS(s *big.Int) *big.Int {
	if s.Cmp(secp256k1HalfN) > 0 {
		return new(big.Int).Sub(secp256k1N, s)
	}
	return new(big.Int).Set(s)
}

// SignDigest signs digest with a secp256k1 key for chain (Bitcoin or
// Ethereum). The nonce is RFC 6979 deterministic, S is normalized and the
// recovery id is found by recovering the signer's chain address. When no
// candidate matches, the signature is returned with RecoveryID 0 and
// Recovered false.
func SignDigest(chain Chain, kp *KeyPair, digest MessageDigest) (*ECDSASignature, error) {
	if err := checkSigningKey(chain, kp, Secp256k1); err != nil {
		return nil, err
	}
	if digest == (MessageDigest{}) {
		return nil, &SignatureError{Chain: chain, Err: ErrMissingDigest}
	}

	compact := ecdsa.SignCompact(kp.btcecPrivateKey(), digest[:], true)
	r := new(big.Int).SetBytes(compact[1:33])
	s := new(big.Int).SetBytes(compact[33:65])

	signer, err := EncodeAddress(chain, kp.PublicKey())
	if err != nil {
		return nil, &SignatureError{Chain: chain, Err: err}
	}

	return AttachRecoveryID(chain, r, s, digest, signer)
}

// AttachRecoveryID completes a raw (r, s) pair, for instance one parsed from
// an external DER signature: S is normalized and the recovery id is searched
// against signerAddress. r and s are not otherwise altered.
func AttachRecoveryID(chain Chain, r, s *big.Int, digest MessageDigest, signerAddress string) (*ECDSASignature, error) {
	if err := checkScalarRange(r, s); err != nil {
		return nil, err
	}

	sig := &ECDSASignature{
		R: new(big.Int).Set(r),
		S: NormalizeS(s),
	}

	id, ok := FindRecoveryID(chain, sig.R, sig.S, digest, signerAddress)
	sig.RecoveryID = id
	sig.Recovered = ok
	if !ok {
		log.Warnf("No recovery id reproduces %s signer %s; defaulting to 0", chain, signerAddress)
	} else {
		log.Debugf("Recovered %s signer %s with recovery id %d", chain, signerAddress, id)
	}

	return sig, nil
}

// FindRecoveryID tries recovery ids 0 and 1 and returns the first whose
// recovered public key encodes to signerAddress on chain. The comparison is
// case-insensitive. It returns (0, false) when neither id matches.
func FindRecoveryID(chain Chain, r, s *big.Int, digest MessageDigest, signerAddress string) (byte, bool) {
	for id := byte(0); id < 2; id++ {
		pub, err := RecoverPublicKey(digest, r, s, id)
		if err != nil {
			continue
		}
		addr, err := EncodeAddress(chain, pub.SerializeCompressed())
		if err != nil {
			continue
		}
		if strings.EqualFold(addr, signerAddress) {
			return id, true
		}
	}
	return 0, false
}

// SignEd25519 signs the raw message with an Ed25519 key. EdDSA hashes
// internally, so no digest is computed here and the empty message is a
// valid input.
func SignEd25519(kp *KeyPair, message []byte) (EdDSASignature, error) {
	var sig EdDSASignature
	if err := checkSigningKey(Solana, kp, Ed25519); err != nil {
		return sig, err
	}
	copy(sig[:], ed25519.Sign(kp.ed25519PrivateKey(), message))
	return sig, nil
}

// EncodeV tags a recovery id for Ethereum. With a chain id it returns the
// EIP-155 value recoveryID + 35 + 2*chainID, otherwise 27 + recoveryID.
func EncodeV(recoveryID byte, chainID *big.Int) *big.Int {
	if chainID == nil {
		return big.NewInt(int64(legacyVOffset) + int64(recoveryID))
	}
	v := new(big.Int).Lsh(chainID, 1)
	return v.Add(v, big.NewInt(int64(eip155VOffset)+int64(recoveryID)))
}

// DecodeV reverses EncodeV. A nil chainID accepts 27/28 and the raw 0/1.
func DecodeV(v, chainID *big.Int) (byte, error) {
	var id *big.Int
	if chainID == nil {
		id = new(big.Int).Set(v)
		if id.Cmp(big.NewInt(legacyVOffset)) >= 0 {
			id.Sub(id, big.NewInt(legacyVOffset))
		}
	} else {
		id = new(big.Int).Lsh(chainID, 1)
		id.Add(id, big.NewInt(eip155VOffset))
		id.Sub(v, id)
	}
	if id.Sign() < 0 || id.Cmp(big.NewInt(1)) > 0 {
		return 0, inputErrf("decode v", ErrMalformedSignature, "v=%s is not valid for chain id %v", v, chainID)
	}
	return byte(id.Uint64()), nil
}

// ParseDERSignature extracts r and s from an ASN.1 DER ECDSA signature such
// as the one `openssl pkeyutl -sign` writes. High-S values are accepted;
// AttachRecoveryID normalizes them.
func ParseDERSignature(der []byte) (r, s *big.Int, err error) {
	r, s = new(big.Int), new(big.Int)
	input := cryptobyte.String(der)
	var inner cryptobyte.String
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(r) || !inner.ReadASN1Integer(s) || !inner.Empty() {
		return nil, nil, inputErrf("parse der signature", ErrMalformedSignature, "invalid ASN.1 structure")
	}
	if err := checkScalarRange(r, s); err != nil {
		return nil, nil, err
	}
	return r, s, nil
}

// ParseECDSASignature decodes the 65-byte r || s || v form. v may be the raw
// recovery id or the legacy 27/28.
func ParseECDSASignature(b []byte) (*ECDSASignature, error) {
	if len(b) != 65 {
		return nil, inputErrf("parse signature", ErrMalformedSignature, "expected 65 bytes, got %d", len(b))
	}
	id, err := DecodeV(big.NewInt(int64(b[64])), nil)
	if err != nil {
		return nil, err
	}
	sig := &ECDSASignature{
		R:          new(big.Int).SetBytes(b[0:32]),
		S:          new(big.Int).SetBytes(b[32:64]),
		RecoveryID: id,
	}
	if err := checkScalarRange(sig.R, sig.S); err != nil {
		return nil, err
	}
	return sig, nil
}

func checkSigningKey(chain Chain, kp *KeyPair, curve Curve) error {
	if kp == nil {
		return &SignatureError{Chain: chain, Err: ErrMissingPrivateKey}
	}
	if kp.Curve() != curve || chain.Curve() != curve {
		return &SignatureError{Chain: chain, Err: fmt.Errorf("%w: %s key for %s", ErrCurveMismatch, kp.Curve(), chain)}
	}
	return nil
}

// checkScalarRange enforces 1 <= r, s < n.
func checkScalarRange(r, s *big.Int) error {
	if r == nil || s == nil {
		return inputErrf("signature", ErrMalformedSignature, "r and s are required")
	}
	if r.Sign() <= 0 || r.Cmp(secp256k1N) >= 0 {
		return inputErrf("signature", ErrMalformedSignature, "r is outside [1, n-1]")
	}
	if s.Sign() <= 0 || s.Cmp(secp256k1N) >= 0 {
		return inputErrf("signature", ErrMalformedSignature, "s is outside [1, n-1]")
	}
	return nil
}

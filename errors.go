// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPath is returned when a derivation path string cannot be
	// parsed.
	ErrMalformedPath = errors.New("malformed derivation path")

	// ErrNonHardenedSegment is returned when a non-hardened segment is
	// requested on a curve that only defines hardened derivation (Ed25519).
	ErrNonHardenedSegment = errors.New("ed25519 derivation requires every segment to be hardened")

	// ErrMalformedAddress is returned when an address string is not in the
	// format its chain expects.
	ErrMalformedAddress = errors.New("malformed address")

	// ErrMalformedKey is returned when key bytes have the wrong length or do
	// not describe a valid key on the requested curve.
	ErrMalformedKey = errors.New("malformed key")

	// ErrMalformedSignature is returned when signature material is out of
	// range or cannot be decoded.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrInvalidChild is returned when a BIP32 child index produces an
	// unusable key. BIP32 callers are expected to move on to the next index.
	ErrInvalidChild = errors.New("the extended key at this index is invalid")

	// ErrUnusableSeed is returned when a seed is out of the allowed length
	// range or produces an invalid master key.
	ErrUnusableSeed = errors.New("unusable seed")

	// ErrMissingPrivateKey is returned when signing is attempted without a
	// private key.
	ErrMissingPrivateKey = errors.New("private key is required")

	// ErrMissingDigest is returned when signing is attempted without a
	// message or digest.
	ErrMissingDigest = errors.New("message digest is required")

	// ErrCurveMismatch is returned when key material for one curve is handed
	// to an operation for another.
	ErrCurveMismatch = errors.New("key curve does not match the operation")

	// ErrUnknownChain is returned for chain identifiers outside the supported
	// set.
	ErrUnknownChain = errors.New("unknown chain")

	// ErrRecoveryNotFound is returned when no recovery id reproduces the
	// signer address.
	ErrRecoveryNotFound = errors.New("no recovery id matches the signer address")
)

// InputError reports malformed caller input: derivation paths, addresses,
// key bytes. It is never retried.
type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func inputErrf(op string, sentinel error, format string, args ...any) error {
	return &InputError{Op: op, Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}

// KeyGenerationError reports that key material could not be produced, by
// the external provider and by the local fallback.
type KeyGenerationError struct {
	Curve    Curve
	Provider error
	Fallback error
}

func (e *KeyGenerationError) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("could not generate %s key: %v", e.Curve, e.Provider)
	}
	return fmt.Sprintf("could not generate %s key: provider: %v; fallback: %v", e.Curve, e.Provider, e.Fallback)
}

func (e *KeyGenerationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Provider != nil {
		errs = append(errs, e.Provider)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}

// SignatureError reports an unmet signing precondition. No partial
// signature accompanies it.
type SignatureError struct {
	Chain Chain
	Err   error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("%s signing failed: %v", e.Chain, e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// Reason explains the outcome of a verification that ran.
type Reason int

const (
	// ReasonValid means the signature verified.
	ReasonValid Reason = iota

	// ReasonInvalidSignature means the signature is well-formed but does
	// not verify against the key and message.
	ReasonInvalidSignature

	// ReasonAddressMismatch means public-key recovery succeeded but the
	// recovered address is not the claimed signer.
	ReasonAddressMismatch
)

func (r Reason) String() string {
	switch r {
	case ReasonValid:
		return "valid"
	case ReasonInvalidSignature:
		return "signature does not verify"
	case ReasonAddressMismatch:
		return "recovered address does not match signer"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// VerificationError is the error form of a failed VerifyResult.
type VerificationError struct {
	Reason           Reason
	RecoveredAddress string
}

func (e *VerificationError) Error() string {
	if e.RecoveredAddress != "" {
		return fmt.Sprintf("verification failed: %s (recovered %s)", e.Reason, e.RecoveredAddress)
	}
	return fmt.Sprintf("verification failed: %s", e.Reason)
}

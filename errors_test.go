// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"
)

// TestInputError tests that input errors match their sentinel
func TestInputError(t *testing.T) {
	is := is.New(t)

	err := inputErrf("parse path", ErrMalformedPath, "bad segment %q", "x")
	is.True(errors.Is(err, ErrMalformedPath))
	is.True(!errors.Is(err, ErrMalformedAddress))
	is.True(strings.HasPrefix(err.Error(), "parse path: "))

	var inErr *InputError
	is.True(errors.As(err, &inErr))
	is.Equal(inErr.Op, "parse path")
}

// TestKeyGenerationError tests unwrapping of both generation causes
func TestKeyGenerationError(t *testing.T) {
	is := is.New(t)

	provider := errors.New("provider down")
	fallback := errors.New("no entropy")

	err := error(&KeyGenerationError{Curve: Ed25519, Provider: provider})
	is.True(errors.Is(err, provider))
	is.True(!strings.Contains(err.Error(), "fallback"))

	err = &KeyGenerationError{Curve: Ed25519, Provider: provider, Fallback: fallback}
	is.True(errors.Is(err, provider))
	is.True(errors.Is(err, fallback))
	is.True(strings.Contains(err.Error(), "ed25519"))
}

// TestSignatureError tests the signing failure wrapper
func TestSignatureError(t *testing.T) {
	is := is.New(t)

	err := error(&SignatureError{Chain: Ethereum, Err: ErrMissingPrivateKey})
	is.True(errors.Is(err, ErrMissingPrivateKey))
	is.Equal(err.Error(), "ethereum signing failed: "+ErrMissingPrivateKey.Error())
}

// TestVerifyResult_Err tests the error form of verification results
func TestVerifyResult_Err(t *testing.T) {
	is := is.New(t)

	is.NoErr(VerifyResult{Valid: true, Reason: ReasonValid}.Err())

	err := VerifyResult{Reason: ReasonInvalidSignature}.Err()
	var verr *VerificationError
	is.True(errors.As(err, &verr))
	is.Equal(verr.Reason, ReasonInvalidSignature)
	is.Equal(err.Error(), "verification failed: signature does not verify")

	is.Equal(Reason(9).String(), "reason(9)")
}

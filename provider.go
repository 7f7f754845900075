// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
)

// maxScalarAttempts bounds rejection sampling of secp256k1 private keys. A
// uniformly random 32-byte value is out of range with probability ~2^-128.
const maxScalarAttempts = 16

// KeyMaterial is a raw key pair handed over by a provider. PublicKey is
// optional; when present it must match the key computed from PrivateKey.
type KeyMaterial struct {
	PrivateKey []byte
	PublicKey  []byte
}

// KeyMaterialProvider produces fresh random key material for a curve.
type KeyMaterialProvider interface {
	RequestKeyPair(ctx context.Context, curve Curve) (*KeyMaterial, error)
}

// LocalProvider generates keys in-process from a CSPRNG.
type LocalProvider struct {
	// Rand is the entropy source. It defaults to crypto/rand.Reader.
	Rand io.Reader
}

// RequestKeyPair generates a key pair for curve.
func (p LocalProvider) RequestKeyPair(ctx context.Context, curve Curve) (*KeyMaterial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := p.Rand
	if r == nil {
		r = rand.Reader
	}

	switch curve {
	case Secp256k1:
		priv := make([]byte, 32)
		for range maxScalarAttempts {
			if _, err := io.ReadFull(r, priv); err != nil {
				return nil, fmt.Errorf("could not read entropy: %w", err)
			}
			if validScalar(priv) {
				return &KeyMaterial{PrivateKey: priv}, nil
			}
		}
		return nil, fmt.Errorf("entropy source produced no valid secp256k1 scalar in %d attempts", maxScalarAttempts)

	case Ed25519:
		pub, priv, err := ed25519.GenerateKey(r)
		if err != nil {
			return nil, fmt.Errorf("could not generate ed25519 key: %w", err)
		}
		return &KeyMaterial{PrivateKey: priv.Seed(), PublicKey: pub}, nil

	default:
		return nil, inputErrf("local provider", ErrMalformedKey, "unsupported curve %s", curve)
	}
}

// GeneratedKey is the result of GenerateKeyPair.
type GeneratedKey struct {
	KeyPair *KeyPair

	// Fallback is set when the provider failed and the key came from the
	// local CSPRNG instead. FallbackReason holds the provider's error.
	Fallback       bool
	FallbackReason error
}

// GenerateKeyPair asks provider for a key pair on curve. If the provider
// fails for any reason, including returning a public key that does not match
// its private key, the key is generated locally exactly once and the result
// is marked as a fallback. A nil provider generates locally without marking
// a fallback.
func GenerateKeyPair(ctx context.Context, provider KeyMaterialProvider, curve Curve) (*GeneratedKey, error) {
	if provider == nil {
		kp, err := requestKeyPair(ctx, LocalProvider{}, curve)
		if err != nil {
			return nil, &KeyGenerationError{Curve: curve, Provider: err}
		}
		return &GeneratedKey{KeyPair: kp}, nil
	}

	log.Debugf("Requesting %s key pair from %T", curve, provider)

	kp, providerErr := requestKeyPair(ctx, provider, curve)
	if providerErr == nil {
		return &GeneratedKey{KeyPair: kp}, nil
	}

	log.Warnf("Key provider %T failed, generating %s key locally: %v", provider, curve, providerErr)

	kp, fallbackErr := requestKeyPair(ctx, LocalProvider{}, curve)
	if fallbackErr != nil {
		return nil, &KeyGenerationError{Curve: curve, Provider: providerErr, Fallback: fallbackErr}
	}

	return &GeneratedKey{
		KeyPair:        kp,
		Fallback:       true,
		FallbackReason: providerErr,
	}, nil
}

func requestKeyPair(ctx context.Context, provider KeyMaterialProvider, curve Curve) (*KeyPair, error) {
	material, err := provider.RequestKeyPair(ctx, curve)
	if err != nil {
		return nil, err
	}
	if material == nil {
		return nil, fmt.Errorf("%w: provider returned no key material", ErrMalformedKey)
	}
	return keyPairFromMaterial(curve, material)
}

// keyPairFromMaterial recomputes the public key from the private key and
// rejects material whose supplied public key disagrees.
func keyPairFromMaterial(curve Curve, material *KeyMaterial) (*KeyPair, error) {
	kp, err := NewKeyPair(curve, material.PrivateKey)
	if err != nil {
		return nil, err
	}
	if len(material.PublicKey) == 0 {
		return kp, nil
	}

	supplied := material.PublicKey
	if curve == Secp256k1 {
		key, err := parseSecp256k1PublicKey("provider public key", supplied)
		if err != nil {
			return nil, err
		}
		supplied = key.SerializeCompressed()
	}
	if !bytes.Equal(supplied, kp.public) {
		return nil, fmt.Errorf("%w: provider public key does not match its private key", ErrMalformedKey)
	}
	return kp, nil
}

// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	// MinSeedBytes is the minimum seed length accepted by NewMasterNode.
	MinSeedBytes = 16

	// MaxSeedBytes is the maximum seed length accepted by NewMasterNode.
	MaxSeedBytes = 64

	// RecommendedSeedBytes is the 512-bit seed length BIP39 produces.
	RecommendedSeedBytes = 64
)

var (
	bitcoinSeedKey = []byte("Bitcoin seed")
	ed25519SeedKey = []byte("ed25519 seed")
)

// Node is one key in an HD tree. Nodes are immutable: deriving a child
// returns a new Node and leaves the parent untouched.
type Node struct {
	curve             Curve
	key               [32]byte
	chainCode         [32]byte
	depth             uint8
	segment           Segment
	parentFingerprint uint32
}

// NewMasterNode computes the master node for seed on curve. secp256k1 uses
// the BIP32 HMAC key "Bitcoin seed", Ed25519 the SLIP-0010 key "ed25519 seed".
func NewMasterNode(curve Curve, seed []byte) (*Node, error) {
	if len(seed) < MinSeedBytes || len(seed) > MaxSeedBytes {
		return nil, inputErrf("master node", ErrUnusableSeed, "seed must be %d to %d bytes, got %d", MinSeedBytes, MaxSeedBytes, len(seed))
	}

	var hmacKey []byte
	switch curve {
	case Secp256k1:
		hmacKey = bitcoinSeedKey
	case Ed25519:
		hmacKey = ed25519SeedKey
	default:
		return nil, inputErrf("master node", ErrMalformedKey, "unsupported curve %s", curve)
	}

	il, ir := hmacSHA512(hmacKey, seed)

	if curve == Secp256k1 && !validScalar(il) {
		return nil, inputErrf("master node", ErrUnusableSeed, "seed produces an invalid master key")
	}

	n := &Node{curve: curve}
	copy(n.key[:], il)
	copy(n.chainCode[:], ir)

	log.Tracef("Derived master %v", n)

	return n, nil
}

// Derive computes the node at path below the master node for seed. For
// Ed25519 every segment must be hardened; the whole path is checked before
// any derivation takes place.
func Derive(curve Curve, seed []byte, path Path) (*Node, error) {
	if curve == Ed25519 && !path.FullyHardened() {
		return nil, inputErrf("derive", ErrNonHardenedSegment, "path %s", path)
	}

	node, err := NewMasterNode(curve, seed)
	if err != nil {
		return nil, err
	}

	for _, seg := range path {
		node, err = node.Child(seg)
		if err != nil {
			return nil, err
		}
	}

	return node, nil
}

// DeriveString parses path and calls Derive.
func DeriveString(curve Curve, seed []byte, path string) (*Node, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return Derive(curve, seed, p)
}

// Child derives the child node for seg.
//
// secp256k1 (BIP32): hardened children hash 0x00 || k || ser32(i), normal
// children hash serP(K) || ser32(i); the child key is (IL + k) mod n.
//
// Ed25519 (SLIP-0010): only hardened children exist; IL is the child key.
func (n *Node) Child(seg Segment) (*Node, error) {
	if int(n.depth)+1 > MaxDepth {
		return nil, inputErrf("child", ErrMalformedPath, "node is already at max depth %d", MaxDepth)
	}
	if n.curve == Ed25519 && !seg.Hardened {
		return nil, inputErrf("child", ErrNonHardenedSegment, "segment %s", seg)
	}

	childNum := seg.ChildNumber()

	var data []byte
	if seg.Hardened {
		data = make([]byte, 0, 1+32+4)
		data = append(data, 0x00)
		data = append(data, n.key[:]...)
	} else {
		data = make([]byte, 0, 33+4)
		data = append(data, n.publicKeyBytes()...)
	}
	data = binary.BigEndian.AppendUint32(data, childNum)

	il, ir := hmacSHA512(n.chainCode[:], data)

	child := &Node{
		curve:             n.curve,
		depth:             n.depth + 1,
		segment:           seg,
		parentFingerprint: n.Fingerprint(),
	}
	copy(child.chainCode[:], ir)

	switch n.curve {
	case Secp256k1:
		if !validScalar(il) {
			return nil, inputErrf("child", ErrInvalidChild, "index %d", childNum)
		}

		var ilNum, k btcec.ModNScalar
		ilNum.SetByteSlice(il)
		k.SetByteSlice(n.key[:])
		ilNum.Add(&k)
		if ilNum.IsZero() {
			return nil, inputErrf("child", ErrInvalidChild, "index %d", childNum)
		}
		child.key = ilNum.Bytes()
	case Ed25519:
		copy(child.key[:], il)
	}

	return child, nil
}

// DerivePath walks path below n.
func (n *Node) DerivePath(path Path) (*Node, error) {
	if n.curve == Ed25519 && !path.FullyHardened() {
		return nil, inputErrf("derive", ErrNonHardenedSegment, "path %s", path)
	}
	node := n
	for _, seg := range path {
		var err error
		node, err = node.Child(seg)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// Curve returns the node's curve.
func (n *Node) Curve() Curve { return n.curve }

// Depth returns the number of derivation steps from the master node.
func (n *Node) Depth() uint8 { return n.depth }

// Segment returns the path segment that produced this node. The master node
// returns the zero segment.
func (n *Node) Segment() Segment { return n.segment }

// ParentFingerprint returns the fingerprint of the parent node, zero for the
// master node.
func (n *Node) ParentFingerprint() uint32 { return n.parentFingerprint }

// PrivateKey returns a copy of the node's 32-byte private key. For Ed25519
// nodes this is the RFC 8032 seed.
func (n *Node) PrivateKey() []byte {
	out := make([]byte, 32)
	copy(out, n.key[:])
	return out
}

// ChainCode returns a copy of the node's chain code.
func (n *Node) ChainCode() []byte {
	out := make([]byte, 32)
	copy(out, n.chainCode[:])
	return out
}

// KeyPair returns the node's key pair.
func (n *Node) KeyPair() (*KeyPair, error) {
	return NewKeyPair(n.curve, n.key[:])
}

// PublicKey returns the node's public key: compressed secp256k1 or raw
// Ed25519.
func (n *Node) PublicKey() []byte {
	return n.publicKeyBytes()
}

// Fingerprint returns the first four bytes of Hash160 of the node's public
// key, as used in BIP32 and SLIP-0010 serialization.
func (n *Node) Fingerprint() uint32 {
	pub := n.publicKeyBytes()
	if n.curve == Ed25519 {
		// SLIP-0010 hashes the 0x00-prefixed 33-byte form.
		pub = append([]byte{0x00}, pub...)
	}
	return binary.BigEndian.Uint32(btcutil.Hash160(pub)[:4])
}

// ExtendedKey serializes a secp256k1 node as a BIP32 extended private key
// for net. Ed25519 nodes have no standard extended key encoding.
func (n *Node) ExtendedKey(net *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {
	if n.curve != Secp256k1 {
		return nil, inputErrf("extended key", ErrCurveMismatch, "%s nodes have no extended key encoding", n.curve)
	}
	if net == nil {
		net = &chaincfg.MainNetParams
	}

	parentFP := make([]byte, 4)
	binary.BigEndian.PutUint32(parentFP, n.parentFingerprint)

	childNum := n.segment.ChildNumber()
	if n.depth == 0 {
		childNum = 0
	}

	return hdkeychain.NewExtendedKey(net.HDPrivateKeyID[:], n.PrivateKey(), n.ChainCode(), parentFP, n.depth, childNum, true), nil
}

// String returns a short description of the node for logs.
func (n *Node) String() string {
	return n.curve.String() + " node depth=" + strconv.Itoa(int(n.depth)) + " pub=" + hex.EncodeToString(n.publicKeyBytes())
}

func (n *Node) publicKeyBytes() []byte {
	kp, err := NewKeyPair(n.curve, n.key[:])
	if err != nil {
		// Nodes are only ever constructed with valid keys.
		panic(err)
	}
	return kp.public
}

func hmacSHA512(key, data []byte) (il, ir []byte) {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// validScalar reports whether b is a secp256k1 scalar in [1, n-1].
func validScalar(b []byte) bool {
	var s btcec.ModNScalar
	overflow := s.SetByteSlice(b)
	return !overflow && !s.IsZero()
}

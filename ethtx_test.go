// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/matryer/is"
)

// eip155Example is the example transaction from EIP-155.
func eip155Example() *LegacyTx {
	to := common.HexToAddress("0x3535353535353535353535353535353535353535")
	return &LegacyTx{
		Nonce:    9,
		GasPrice: big.NewInt(20_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		ChainID:  big.NewInt(1),
	}
}

// TestLegacyTx_SigningPayload tests the EIP-155 example payload and hash
func TestLegacyTx_SigningPayload(t *testing.T) {
	is := is.New(t)

	tx := eip155Example()

	payload, err := tx.SigningPayload()
	is.NoErr(err)
	is.Equal(hex.EncodeToString(payload), "ec098504a817c800825208943535353535353535353535353535353535353535880de0b6b3a764000080018080")

	hash, err := tx.SigningHash()
	is.NoErr(err)
	is.Equal(hex.EncodeToString(hash[:]), "daf5a779ae972f972197303d7b574746c7ef83eadac0f2791ad23db92e4c8e53")

	ref := types.NewTx(&types.LegacyTx{
		Nonce:    tx.Nonce,
		GasPrice: tx.GasPrice,
		Gas:      tx.Gas,
		To:       tx.To,
		Value:    tx.Value,
	})
	is.Equal(hash[:], types.NewEIP155Signer(tx.ChainID).Hash(ref).Bytes())
}

// TestLegacyTx_Sign tests that go-ethereum decodes the signed transaction
// and recovers the signer
func TestLegacyTx_Sign(t *testing.T) {
	is := is.New(t)

	kp, err := NewKeyPair(Secp256k1, repeatByte(0x46, 32))
	is.NoErr(err)
	tx := eip155Example()

	sig, raw, err := tx.Sign(kp)
	is.NoErr(err)
	is.True(sig.Recovered)
	is.True(sig.IsLowS())

	var decoded types.Transaction
	is.NoErr(decoded.UnmarshalBinary(raw))

	v, r, s := decoded.RawSignatureValues()
	is.Equal(v.Cmp(EncodeV(sig.RecoveryID, tx.ChainID)), 0)
	is.Equal(r.Cmp(sig.R), 0)
	is.Equal(s.Cmp(sig.S), 0)

	sender, err := types.Sender(types.NewEIP155Signer(tx.ChainID), &decoded)
	is.NoErr(err)

	ecdsaKey, err := crypto.ToECDSA(kp.PrivateKey())
	is.NoErr(err)
	is.Equal(sender, crypto.PubkeyToAddress(ecdsaKey.PublicKey))

	addr, err := EthereumAddress(kp.PublicKey())
	is.NoErr(err)
	is.Equal(sender.Hex(), addr)
}

// TestLegacyTx_Unprotected tests the pre-EIP-155 six-field payload
func TestLegacyTx_Unprotected(t *testing.T) {
	is := is.New(t)

	tx := eip155Example()
	tx.ChainID = nil

	hash, err := tx.SigningHash()
	is.NoErr(err)

	ref := types.NewTx(&types.LegacyTx{
		Nonce:    tx.Nonce,
		GasPrice: tx.GasPrice,
		Gas:      tx.Gas,
		To:       tx.To,
		Value:    tx.Value,
	})
	is.Equal(hash[:], types.HomesteadSigner{}.Hash(ref).Bytes())

	kp, err := NewKeyPair(Secp256k1, repeatByte(0x46, 32))
	is.NoErr(err)
	sig, raw, err := tx.Sign(kp)
	is.NoErr(err)

	var decoded types.Transaction
	is.NoErr(decoded.UnmarshalBinary(raw))
	v, _, _ := decoded.RawSignatureValues()
	is.Equal(v.Int64(), int64(27)+int64(sig.RecoveryID))
}

// TestLegacyTx_ContractCreation tests that a nil recipient encodes as the
// empty string
func TestLegacyTx_ContractCreation(t *testing.T) {
	is := is.New(t)

	tx := &LegacyTx{Nonce: 0, Gas: 53000, Data: []byte{0x60, 0x80}, ChainID: big.NewInt(5)}

	hash, err := tx.SigningHash()
	is.NoErr(err)

	ref := types.NewTx(&types.LegacyTx{Gas: tx.Gas, Data: tx.Data, GasPrice: new(big.Int), Value: new(big.Int)})
	is.Equal(hash[:], types.NewEIP155Signer(tx.ChainID).Hash(ref).Bytes())
}

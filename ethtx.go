// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// LegacyTx is a pre-EIP-2718 Ethereum transaction. With a ChainID it is
// signed under EIP-155 replay protection.
type LegacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64

	// To is nil for contract creation.
	To    *common.Address
	Value *big.Int
	Data  []byte

	ChainID *big.Int
}

// SigningPayload returns the RLP list the signature commits to:
// (nonce, gasPrice, gas, to, value, data, chainID, 0, 0) under EIP-155, or
// the first six fields when ChainID is nil.
func (tx *LegacyTx) SigningPayload() ([]byte, error) {
	fields := tx.fields()
	if tx.ChainID != nil {
		fields = append(fields, tx.ChainID, uint(0), uint(0))
	}
	payload, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, fmt.Errorf("could not encode signing payload: %w", err)
	}
	return payload, nil
}

// SigningHash returns the Keccak-256 of SigningPayload.
func (tx *LegacyTx) SigningHash() (MessageDigest, error) {
	payload, err := tx.SigningPayload()
	if err != nil {
		return MessageDigest{}, err
	}
	return MessageDigest(Keccak256(payload)), nil
}

// Sign signs the transaction with kp and returns the signature together with
// the raw signed transaction.
func (tx *LegacyTx) Sign(kp *KeyPair) (*ECDSASignature, []byte, error) {
	payload, err := tx.SigningPayload()
	if err != nil {
		return nil, nil, &SignatureError{Chain: Ethereum, Err: err}
	}
	sig, err := ethereumScheme{}.Sign(kp, payload)
	if err != nil {
		return nil, nil, err
	}
	ecSig := sig.(*ECDSASignature)

	raw, err := tx.RawSigned(ecSig)
	if err != nil {
		return nil, nil, err
	}
	return ecSig, raw, nil
}

// RawSigned returns the RLP encoding of the transaction with v, r and s
// appended, ready for eth_sendRawTransaction.
func (tx *LegacyTx) RawSigned(sig *ECDSASignature) ([]byte, error) {
	if sig == nil {
		return nil, inputErrf("raw transaction", ErrMalformedSignature, "signature is required")
	}
	fields := append(tx.fields(), sig.V(tx.ChainID), sig.R, sig.S)
	raw, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, fmt.Errorf("could not encode signed transaction: %w", err)
	}
	return raw, nil
}

func (tx *LegacyTx) fields() []any {
	gasPrice := tx.GasPrice
	if gasPrice == nil {
		gasPrice = new(big.Int)
	}
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	data := tx.Data
	if data == nil {
		data = []byte{}
	}
	return []any{tx.Nonce, gasPrice, tx.Gas, tx.To, value, data}
}

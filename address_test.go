// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/matryer/is"
	"pgregory.net/rapid"
)

// privateKeyOne is the secp256k1 private key 1, whose public key is G.
func privateKeyOne() []byte {
	k := make([]byte, 32)
	k[31] = 1
	return k
}

// TestEncodeAddress_PrivateKeyOne tests the well-known addresses of private
// key 1
func TestEncodeAddress_PrivateKeyOne(t *testing.T) {
	is := is.New(t)

	kp, err := NewKeyPair(Secp256k1, privateKeyOne())
	is.NoErr(err)

	btc, err := EncodeAddress(Bitcoin, kp.PublicKey())
	is.NoErr(err)
	is.Equal(btc, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH")

	eth, err := EncodeAddress(Ethereum, kp.PublicKey())
	is.NoErr(err)
	is.Equal(eth, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")

	// The uncompressed form yields the same addresses.
	full, err := kp.UncompressedPublicKey()
	is.NoErr(err)
	btcFull, err := BitcoinAddress(full)
	is.NoErr(err)
	is.Equal(btcFull, btc)
	ethFull, err := EthereumAddress(full)
	is.NoErr(err)
	is.Equal(ethFull, eth)
}

// TestBitcoinAddress_MatchesBtcutil tests P2PKH encoding against btcutil on
// mainnet and testnet
func TestBitcoinAddress_MatchesBtcutil(t *testing.T) {
	is := is.New(t)

	kp, err := NewKeyPair(Secp256k1, repeatByte(0x01, 32))
	is.NoErr(err)

	for _, net := range []*chaincfg.Params{&chaincfg.MainNetParams, &chaincfg.TestNet3Params} {
		ref, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(kp.PublicKey()), net)
		is.NoErr(err)

		addr, err := BitcoinAddressForNet(kp.PublicKey(), net)
		is.NoErr(err)
		is.Equal(addr, ref.EncodeAddress())

		version, hash, err := DecodeBitcoinAddress(addr)
		is.NoErr(err)
		is.Equal(version, net.PubKeyHashAddrID)
		is.Equal(hash, btcutil.Hash160(kp.PublicKey()))
	}
}

// TestDecodeBitcoinAddress_BadChecksum tests that a corrupted address fails
func TestDecodeBitcoinAddress_BadChecksum(t *testing.T) {
	is := is.New(t)

	_, _, err := DecodeBitcoinAddress("1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMJ")
	is.True(errors.Is(err, ErrMalformedAddress))
}

// TestToChecksumAddress tests the EIP-55 reference vectors
func TestToChecksumAddress(t *testing.T) {
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}

	for _, want := range vectors {
		t.Run(want, func(t *testing.T) {
			is := is.New(t)

			got, err := ToChecksumAddress(strings.ToLower(want))
			is.NoErr(err)
			is.Equal(got, want)

			got, err = ToChecksumAddress(strings.ToUpper(want[2:]))
			is.NoErr(err)
			is.Equal(got, want)

			is.True(IsChecksumAddress(want))
			is.True(!IsChecksumAddress(strings.ToLower(want)))
		})
	}
}

// TestToChecksumAddress_Invalid tests malformed hex addresses
func TestToChecksumAddress_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"0x",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAe",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAedd",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeg",
		"1x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	}

	for _, in := range invalid {
		t.Run(in, func(t *testing.T) {
			is := is.New(t)
			_, err := ToChecksumAddress(in)
			is.True(errors.Is(err, ErrMalformedAddress))

			var inputErr *InputError
			is.True(errors.As(err, &inputErr))
		})
	}
}

// TestToChecksumAddress_Idempotent checks that checksumming a checksummed
// address changes nothing and agrees with go-ethereum
func TestToChecksumAddress_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), EthereumAddressLength, EthereumAddressLength).Draw(t, "address")
		lower := hex.EncodeToString(raw)

		once, err := ToChecksumAddress(lower)
		if err != nil {
			t.Fatalf("checksum %s: %v", lower, err)
		}
		twice, err := ToChecksumAddress(once)
		if err != nil {
			t.Fatalf("checksum %s: %v", once, err)
		}
		if once != twice {
			t.Fatalf("not idempotent: %s then %s", once, twice)
		}
		if ref := common.BytesToAddress(raw).Hex(); ref != once {
			t.Fatalf("got %s, go-ethereum says %s", once, ref)
		}
	})
}

// TestSolanaAddress_RoundTrip checks that Solana addresses decode back to
// the exact public key
func TestSolanaAddress_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pub := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "pub")

		addr, err := SolanaAddress(pub)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := DecodeSolanaAddress(addr)
		if err != nil {
			t.Fatalf("decode %s: %v", addr, err)
		}
		if !bytes.Equal(decoded, pub) {
			t.Fatalf("round trip changed %x into %x", pub, decoded)
		}
	})
}

// TestSolanaAddress_Invalid tests wrong key lengths and bad Base58
func TestSolanaAddress_Invalid(t *testing.T) {
	is := is.New(t)

	_, err := SolanaAddress(make([]byte, 33))
	is.True(errors.Is(err, ErrMalformedKey))

	_, err = DecodeSolanaAddress("0OIl")
	is.True(errors.Is(err, ErrMalformedAddress))

	// "11111111111111111111111111111111" is the 32 zero bytes.
	pub, err := DecodeSolanaAddress("11111111111111111111111111111111")
	is.NoErr(err)
	is.Equal(pub, make([]byte, 32))

	_, err = DecodeSolanaAddress("1111")
	is.True(errors.Is(err, ErrMalformedAddress))
}

// TestEncodeAddress_BadKeys tests that keys of the wrong shape are rejected
func TestEncodeAddress_BadKeys(t *testing.T) {
	is := is.New(t)

	_, err := EncodeAddress(Bitcoin, make([]byte, 32))
	is.True(errors.Is(err, ErrMalformedKey))

	bogus := append([]byte{0x02}, repeatByte(0xff, 32)...)
	_, err = EncodeAddress(Ethereum, bogus)
	is.True(errors.Is(err, ErrMalformedKey))

	_, err = EncodeAddress(Chain(42), make([]byte, 33))
	is.True(errors.Is(err, ErrUnknownChain))

	// Only the 33- and 65-byte SEC1 forms are accepted.
	kp, err := NewKeyPair(Secp256k1, privateKeyOne())
	is.NoErr(err)
	full, err := kp.UncompressedPublicKey()
	is.NoErr(err)
	is.Equal(len(full), 65)
	_, err = EncodeAddress(Ethereum, full[:64])
	is.True(errors.Is(err, ErrMalformedKey))
	_, err = EncodeAddress(Ethereum, append(full, 0x00))
	is.True(errors.Is(err, ErrMalformedKey))
}

// TestKeccak256 tests the legacy Keccak padding
func TestKeccak256(t *testing.T) {
	is := is.New(t)

	is.Equal(hex.EncodeToString(Keccak256()), "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	is.Equal(Keccak256([]byte("ab"), []byte("c")), Keccak256([]byte("abc")))
}

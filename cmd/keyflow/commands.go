package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/complex-gh/keyflow"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
)

// errShowHelp asks the command to print its help instead of failing.
var errShowHelp = errors.New("show help")

var (
	mnemonicStr    string
	seedHex        string
	passphrase     string
	seedPassphrase string
	chainsStr      string
	pathStr        string
	publicOnly     bool

	localOnly bool

	privateKeyStr string
	payloadHex    string
	messageStr    string
	signTx        bool
	txNonce       uint64
	txGas         uint64
	txGasPrice    string
	txTo          string
	txValue       string
	txData        string

	addressStr   string
	pubKeyHex    string
	signatureStr string

	wordCountStr string
	random       bool

	deriveCmd = &cobra.Command{
		Use:   "derive [key-path]",
		Short: "Derive accounts from a mnemonic, a seed or an SSH key",
		Long: `Derive Bitcoin, Ethereum and Solana accounts.

The seed comes from --seed, from --mnemonic, or from an Ed25519 SSH key
turned into a 24-word mnemonic first. Accounts are derived at each chain's
default path unless --path is given for a single chain:

  bitcoin   m/44'/0'/0'/0/0     (BIP32, secp256k1)
  ethereum  m/44'/60'/0'/0/0    (BIP32, secp256k1)
  solana    m/44'/501'/0'/0'    (SLIP-0010, Ed25519, hardened only)`,
		Example: `  keyflow derive ~/.ssh/id_ed25519
  keyflow derive --mnemonic "abandon ... about" --chain eth
  keyflow derive --seed 000102030405060708090a0b0c0d0e0f --chain btc --path "m/0'/1"
  cat ~/.ssh/id_ed25519 | keyflow derive --chain sol --public`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			chains, err := parseChains(chainsStr)
			if err != nil {
				return err
			}
			if pathStr != "" && len(chains) != 1 {
				return fmt.Errorf("--path needs exactly one --chain")
			}

			seed, err := resolveSeed(args)
			if errors.Is(err, errShowHelp) {
				return cmd.Help()
			}
			if errors.Is(err, errKeyNotProtected) {
				return formatPasswordError(err)
			}
			if err != nil {
				return err
			}

			for _, chain := range chains {
				p := chain.DefaultPath()
				if pathStr != "" {
					p = pathStr
				}
				path, err := keyflow.ParsePath(p)
				if err != nil {
					return err
				}
				acct, err := keyflow.DeriveAccount(chain, seed, path)
				if err != nil {
					return err
				}
				lines, err := accountLines(acct)
				if err != nil {
					return err
				}
				printBlock(fmt.Sprintf("%s %s", chain, path), lines...)
			}
			return nil
		},
	}

	keygenCmd = &cobra.Command{
		Use:   "keygen <chain>",
		Short: "Generate a fresh key pair",
		Long: `Generate a fresh key pair for a chain.

Keys are requested from openssl (see --openssl and --timeout). If openssl
is missing, fails or returns unusable key material, the key is generated
locally instead and a warning is shown.`,
		Example: `  keyflow keygen btc
  keyflow keygen sol --openssl /usr/local/bin/openssl
  keyflow keygen eth --local`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := keyflow.ParseChain(args[0])
			if err != nil {
				return err
			}

			var provider keyflow.KeyMaterialProvider
			if !localOnly {
				provider = keyflow.OpenSSLProvider{Binary: opensslBinary, Timeout: opensslTimeout}
			}

			gen, err := keyflow.GenerateKeyPair(cmd.Context(), provider, chain.Curve())
			if err != nil {
				return err
			}
			source := "openssl"
			if provider == nil {
				source = "local"
			}
			if gen.Fallback {
				source = "local"
				printWarning(fmt.Sprintf("openssl could not generate the key, generated locally instead: %v", gen.FallbackReason))
			}

			addr, err := chainAddress(chain, gen.KeyPair.PublicKey())
			if err != nil {
				return err
			}
			priv, err := formatPrivateKey(chain, gen.KeyPair)
			if err != nil {
				return err
			}
			printBlock(fmt.Sprintf("%s key", chain),
				field("address", addr),
				field("private", priv),
				field("public", hex.EncodeToString(gen.KeyPair.PublicKey())),
				field("source", source),
			)
			return nil
		},
	}

	signCmd = &cobra.Command{
		Use:   "sign <chain>",
		Short: "Sign a payload or an Ethereum transaction",
		Long: `Sign a payload with a private key.

Bitcoin signs the double SHA-256 of the payload, Ethereum its Keccak-256
and Solana the raw payload. With --tx an Ethereum legacy transaction is
built from the --nonce, --gas, --gas-price, --to, --value and --data
flags and signed under EIP-155 when --chain-id is set.

The private key is read from --key or asked for on the terminal. It may be
hex, a WIF for Bitcoin or a base58 key pair for Solana.`,
		Example: `  keyflow sign eth --message "hello"
  keyflow sign btc --payload 0100000001...
  keyflow sign eth --tx --chain-id 1 --nonce 9 --gas 21000 --gas-price 20000000000 \
      --to 0x3535353535353535353535353535353535353535 --value 1000000000000000000`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			chain, err := keyflow.ParseChain(args[0])
			if err != nil {
				return err
			}
			chainID, err := parseChainID(chainIDStr)
			if err != nil {
				return err
			}

			if privateKeyStr == "" {
				key, err := readPassword("Enter the private key: ")
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return err
				}
				privateKeyStr = string(key)
			}
			priv, err := parsePrivateKeyInput(chain, privateKeyStr)
			if err != nil {
				return err
			}
			kp, err := keyflow.NewKeyPair(chain.Curve(), priv)
			if err != nil {
				return err
			}

			if signTx {
				if chain != keyflow.Ethereum {
					return fmt.Errorf("--tx is only supported for ethereum")
				}
				tx, err := buildLegacyTx(chainID)
				if err != nil {
					return err
				}
				sig, raw, err := tx.Sign(kp)
				if err != nil {
					return err
				}
				printBlock("ethereum signature", signatureLines(chain, sig, chainID)...)
				printBlock("ethereum transaction", "0x"+hex.EncodeToString(raw))
				return nil
			}

			payload, err := readPayload()
			if err != nil {
				return err
			}
			scheme, err := keyflow.ForChain(chain)
			if err != nil {
				return err
			}
			sig, err := scheme.Sign(kp, payload)
			if err != nil {
				return err
			}
			printBlock(fmt.Sprintf("%s signature", chain), signatureLines(chain, sig, chainID)...)
			return nil
		},
	}

	verifyCmd = &cobra.Command{
		Use:   "verify <chain>",
		Short: "Verify a signature against an address or a public key",
		Long: `Verify a signature against an address or a public key.

Bitcoin and Ethereum signatures are checked by recovering the signer and
comparing its address. They may be given as r || s || v hex, as DER or
plain r || s hex (the recovery id is then searched for), or for Bitcoin
as a base64 compact signature. Solana signatures are base58 or hex.`,
		Example: `  keyflow verify eth --address 0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf --message "hello" --signature 0x...
  keyflow verify sol --address 5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1 --message "hello" --signature 3x...`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			chain, err := keyflow.ParseChain(args[0])
			if err != nil {
				return err
			}
			chainID, err := parseChainID(chainIDStr)
			if err != nil {
				return err
			}
			scheme, err := keyflow.ForChain(chain)
			if err != nil {
				return err
			}

			var pub []byte
			if pubKeyHex != "" {
				if pub, err = decodeHex(pubKeyHex); err != nil {
					return fmt.Errorf("invalid public key: %w", err)
				}
			}
			address := addressStr
			if address == "" && len(pub) > 0 {
				if address, err = scheme.Address(pub); err != nil {
					return err
				}
			}

			payload, err := readPayload()
			if err != nil {
				return err
			}
			sig, err := parseSignatureInput(scheme, signatureStr, payload, address, chainID)
			if err != nil {
				return err
			}

			res, err := scheme.Verify(pub, addressStr, payload, sig)
			if err != nil {
				return err
			}
			lines := []string{field("result", res.Reason.String())}
			if res.RecoveredAddress != "" {
				lines = append(lines, field("signer", res.RecoveredAddress))
			}
			printBlock(fmt.Sprintf("%s verification", chain), lines...)
			if !res.Valid {
				return formatError(res.Err(), "signature is not valid")
			}
			return nil
		},
	}

	checksumCmd = &cobra.Command{
		Use:   "checksum <address>...",
		Short: "Print Ethereum addresses in EIP-55 checksum form",
		Example: `  keyflow checksum 0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359
  keyflow checksum 7e5f4552091a69125d5dfcb7b8c2659029395bdf`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			lines := make([]string, 0, len(args))
			for _, arg := range args {
				addr, err := keyflow.ToChecksumAddress(arg)
				if err != nil {
					return err
				}
				lines = append(lines, addr)
			}
			printBlock("checksum address", lines...)
			return nil
		},
	}

	mnemonicCmd = &cobra.Command{
		Use:   "mnemonic [key-path]",
		Short: "Generate a BIP39 mnemonic from an SSH key",
		Long: `Generate a BIP39 mnemonic from an Ed25519 SSH key.

Valid word counts are: 12, 15, 18, 21 or 24. The 24-word mnemonic encodes
the key seed itself; shorter ones are derived from it. With --random the
mnemonic is generated from fresh entropy instead.`,
		Example: `  keyflow mnemonic ~/.ssh/id_ed25519
  keyflow mnemonic ~/.ssh/id_ed25519 --words 12,24
  keyflow mnemonic ~/.ssh/id_ed25519 --words 12 --seed-passphrase "my-passphrase"
  keyflow mnemonic --random --words 12 --language japanese`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			wordCounts, err := parseWordCounts(wordCountStr)
			if err != nil {
				return fmt.Errorf("invalid word counts: %w", err)
			}

			if random {
				for _, count := range wordCounts {
					entropy := make([]byte, count*4/3) //nolint:mnd
					if _, err := rand.Read(entropy); err != nil {
						return fmt.Errorf("could not read entropy: %w", err)
					}
					mnemonic, err := keyflow.NewMnemonic(entropy)
					if err != nil {
						return err
					}
					printBlock(fmt.Sprintf("%d word seed phrase", count), mnemonic)
				}
				return nil
			}

			if len(args) == 0 && !stdinIsPipe() {
				return cmd.Help()
			}
			key, err := readEd25519Key(pathArg(args))
			if errors.Is(err, errKeyNotProtected) {
				return formatPasswordError(err)
			}
			if err != nil {
				return err
			}
			for _, count := range wordCounts {
				mnemonic, err := keyflow.MnemonicFromKey(key, count, seedPassphrase)
				if err != nil {
					return err
				}
				printBlock(fmt.Sprintf("%d word seed phrase", count), mnemonic)
			}
			return nil
		},
	}
)

func init() {
	deriveCmd.Flags().StringVarP(&mnemonicStr, "mnemonic", "m", "", "BIP39 mnemonic to derive from")
	deriveCmd.Flags().StringVar(&seedHex, "seed", "", "Hex seed to derive from (16 to 64 bytes)")
	deriveCmd.Flags().StringVar(&passphrase, "passphrase", "", "BIP39 passphrase")
	deriveCmd.Flags().StringVar(&seedPassphrase, "seed-passphrase", "", "Passphrase to combine with SSH key seed for additional entropy")
	deriveCmd.Flags().StringVarP(&chainsStr, "chain", "c", "", "Chains to derive (comma-separated: btc,eth,sol)")
	deriveCmd.Flags().StringVar(&pathStr, "path", "", "Derivation path for a single chain")
	deriveCmd.Flags().BoolVar(&publicOnly, "public", false, "Only print public information")

	keygenCmd.Flags().BoolVar(&localOnly, "local", false, "Generate locally without openssl")

	signCmd.Flags().StringVarP(&privateKeyStr, "key", "k", "", "Private key (hex, WIF or base58 key pair)")
	signCmd.Flags().StringVar(&payloadHex, "payload", "", "Hex payload to sign")
	signCmd.Flags().StringVar(&messageStr, "message", "", "Text payload to sign")
	signCmd.Flags().BoolVar(&signTx, "tx", false, "Sign an Ethereum legacy transaction")
	signCmd.Flags().Uint64Var(&txNonce, "nonce", 0, "Transaction nonce")
	signCmd.Flags().Uint64Var(&txGas, "gas", 21000, "Transaction gas limit") //nolint:mnd
	signCmd.Flags().StringVar(&txGasPrice, "gas-price", "0", "Transaction gas price in wei")
	signCmd.Flags().StringVar(&txTo, "to", "", "Transaction recipient (empty for contract creation)")
	signCmd.Flags().StringVar(&txValue, "value", "0", "Transaction value in wei")
	signCmd.Flags().StringVar(&txData, "data", "", "Transaction data (hex)")

	verifyCmd.Flags().StringVarP(&addressStr, "address", "a", "", "Signer address")
	verifyCmd.Flags().StringVar(&pubKeyHex, "pubkey", "", "Signer public key (hex)")
	verifyCmd.Flags().StringVar(&payloadHex, "payload", "", "Hex payload that was signed")
	verifyCmd.Flags().StringVar(&messageStr, "message", "", "Text payload that was signed")
	verifyCmd.Flags().StringVarP(&signatureStr, "signature", "s", "", "Signature to verify")
	_ = verifyCmd.MarkFlagRequired("signature")

	mnemonicCmd.Flags().StringVarP(&wordCountStr, "words", "w", "", "Word counts to generate (comma-separated: 12,15,18,21,24)")
	mnemonicCmd.Flags().StringVar(&seedPassphrase, "seed-passphrase", "", "Passphrase to combine with SSH key seed for additional entropy")
	mnemonicCmd.Flags().BoolVar(&random, "random", false, "Generate from random entropy instead of an SSH key")
}

func pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// resolveSeed returns the BIP39 seed selected by the derive flags. An SSH
// key is turned into its 24-word mnemonic, which is printed first.
func resolveSeed(args []string) ([]byte, error) {
	switch {
	case seedHex != "":
		seed, err := decodeHex(seedHex)
		if err != nil {
			return nil, fmt.Errorf("invalid seed: %w", err)
		}
		return seed, nil
	case mnemonicStr != "":
		return keyflow.MnemonicToSeed(strings.Join(strings.Fields(mnemonicStr), " "), passphrase)
	}

	if len(args) == 0 && !stdinIsPipe() {
		return nil, errShowHelp
	}
	key, err := readEd25519Key(pathArg(args))
	if err != nil {
		return nil, err
	}
	mnemonic, err := keyflow.MnemonicFromKey(key, 24, seedPassphrase) //nolint:mnd
	if err != nil {
		return nil, err
	}
	if !publicOnly {
		printBlock("24 word seed phrase", mnemonic)
	}
	return keyflow.MnemonicToSeed(mnemonic, passphrase)
}

// parseChains parses a comma-separated chain list. Empty means all chains.
func parseChains(s string) ([]keyflow.Chain, error) {
	var chains []keyflow.Chain
	seen := make(map[keyflow.Chain]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chain, err := keyflow.ParseChain(part)
		if err != nil {
			return nil, err
		}
		if !seen[chain] {
			seen[chain] = true
			chains = append(chains, chain)
		}
	}
	if len(chains) == 0 {
		return keyflow.Chains, nil
	}
	return chains, nil
}

// parseWordCounts parses a comma-separated string of word counts and validates them.
// Valid word counts are: 12, 15, 18, 21, or 24.
func parseWordCounts(wordCountStr string) ([]int, error) {
	all := []int{12, 15, 18, 21, 24}
	if wordCountStr == "" {
		return all, nil
	}

	validCounts := map[int]bool{12: true, 15: true, 18: true, 21: true, 24: true}
	parts := strings.Split(wordCountStr, ",")
	wordCounts := make([]int, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		count, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid word count %q: %w", part, err)
		}

		if !validCounts[count] {
			return nil, fmt.Errorf("invalid word count: %d (must be 12, 15, 18, 21, or 24)", count)
		}

		wordCounts = append(wordCounts, count)
	}

	if len(wordCounts) == 0 {
		return all, nil
	}

	return wordCounts, nil
}

func bitcoinNet() *chaincfg.Params {
	if testnet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

func field(label, value string) string {
	return fmt.Sprintf("%-9s %s", label, value)
}

func chainAddress(chain keyflow.Chain, pub []byte) (string, error) {
	if chain == keyflow.Bitcoin {
		return keyflow.BitcoinAddressForNet(pub, bitcoinNet())
	}
	return keyflow.EncodeAddress(chain, pub)
}

// formatPrivateKey renders a private key the way wallets for the chain
// import it: WIF for Bitcoin, 0x hex for Ethereum and the base58 64-byte
// key pair for Solana.
func formatPrivateKey(chain keyflow.Chain, kp *keyflow.KeyPair) (string, error) {
	switch chain {
	case keyflow.Bitcoin:
		priv, _ := btcec.PrivKeyFromBytes(kp.PrivateKey())
		wif, err := btcutil.NewWIF(priv, bitcoinNet(), true)
		if err != nil {
			return "", fmt.Errorf("could not encode WIF: %w", err)
		}
		return wif.String(), nil
	case keyflow.Ethereum:
		return "0x" + hex.EncodeToString(kp.PrivateKey()), nil
	case keyflow.Solana:
		return base58.Encode(ed25519.NewKeyFromSeed(kp.PrivateKey())), nil
	default:
		return "", fmt.Errorf("unsupported chain %s", chain)
	}
}

func accountLines(acct *keyflow.Account) ([]string, error) {
	addr, err := chainAddress(acct.Chain, acct.Node.PublicKey())
	if err != nil {
		return nil, err
	}
	lines := []string{field("address", addr)}

	if acct.Chain.Curve() == keyflow.Secp256k1 {
		ext, err := acct.Node.ExtendedKey(bitcoinNet())
		if err != nil {
			return nil, err
		}
		pub, err := ext.Neuter()
		if err != nil {
			return nil, fmt.Errorf("could not neuter extended key: %w", err)
		}
		lines = append(lines, field("xpub", pub.String()))
		if !publicOnly {
			lines = append(lines, field("xprv", ext.String()))
		}
	} else {
		lines = append(lines, field("public", hex.EncodeToString(acct.Node.PublicKey())))
	}

	if !publicOnly {
		kp, err := acct.Node.KeyPair()
		if err != nil {
			return nil, err
		}
		priv, err := formatPrivateKey(acct.Chain, kp)
		if err != nil {
			return nil, err
		}
		lines = append(lines, field("private", priv))
	}
	return lines, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// parsePrivateKeyInput accepts a 32-byte hex key for every chain, a WIF for
// Bitcoin and a base58 seed or key pair for Solana.
func parsePrivateKeyInput(chain keyflow.Chain, s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := decodeHex(s); err == nil && len(b) == 32 {
		return b, nil
	}

	switch chain {
	case keyflow.Bitcoin:
		if wif, err := btcutil.DecodeWIF(s); err == nil {
			return wif.PrivKey.Serialize(), nil
		}
	case keyflow.Solana:
		if b, err := base58.Decode(s); err == nil {
			switch len(b) {
			case ed25519.SeedSize:
				return b, nil
			case ed25519.PrivateKeySize:
				return b[:ed25519.SeedSize], nil
			}
		}
	}
	return nil, fmt.Errorf("could not parse %s private key", chain)
}

// readPayload returns the payload from --payload, --message or piped stdin.
func readPayload() ([]byte, error) {
	switch {
	case payloadHex != "":
		b, err := decodeHex(payloadHex)
		if err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		return b, nil
	case messageStr != "":
		return []byte(messageStr), nil
	case stdinIsPipe():
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("could not read payload: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("no payload: use --payload, --message or stdin")
}

func parseWei(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func buildLegacyTx(chainID *big.Int) (*keyflow.LegacyTx, error) {
	gasPrice, err := parseWei("gas price", txGasPrice)
	if err != nil {
		return nil, err
	}
	value, err := parseWei("value", txValue)
	if err != nil {
		return nil, err
	}
	tx := &keyflow.LegacyTx{
		Nonce:    txNonce,
		GasPrice: gasPrice,
		Gas:      txGas,
		Value:    value,
		ChainID:  chainID,
	}
	if txTo != "" {
		if !common.IsHexAddress(txTo) {
			return nil, fmt.Errorf("invalid recipient %q", txTo)
		}
		to := common.HexToAddress(txTo)
		tx.To = &to
	}
	if txData != "" {
		if tx.Data, err = decodeHex(txData); err != nil {
			return nil, fmt.Errorf("invalid data: %w", err)
		}
	}
	return tx, nil
}

func signatureLines(chain keyflow.Chain, sig keyflow.Signature, chainID *big.Int) []string {
	switch sig := sig.(type) {
	case *keyflow.ECDSASignature:
		lines := []string{
			field("r", fmt.Sprintf("%064x", sig.R)),
			field("s", fmt.Sprintf("%064x", sig.S)),
			field("recid", strconv.Itoa(int(sig.RecoveryID))),
		}
		switch chain {
		case keyflow.Ethereum:
			v := sig.V(chainID)
			rsv := append(sig.Bytes()[:64:64], v.Bytes()...)
			lines = append(lines,
				field("v", v.String()),
				field("signature", "0x"+hex.EncodeToString(rsv)),
			)
		default:
			lines = append(lines,
				field("compact", base64.StdEncoding.EncodeToString(sig.Compact())),
				field("der", hex.EncodeToString(sig.DER())),
			)
		}
		return lines
	case keyflow.EdDSASignature:
		return []string{
			field("signature", sig.String()),
			field("hex", hex.EncodeToString(sig.Bytes())),
		}
	}
	return nil
}

// parseSignatureInput decodes a signature in any of the forms signatureLines
// prints. ECDSA forms without a recovery id are completed by searching for
// the id that recovers address.
func parseSignatureInput(scheme keyflow.Scheme, s string, payload []byte, address string, chainID *big.Int) (keyflow.Signature, error) {
	s = strings.TrimSpace(s)
	chain := scheme.Chain()

	if chain.Curve() == keyflow.Ed25519 {
		b, err := base58.Decode(s)
		if err != nil || len(b) != ed25519.SignatureSize {
			if b, err = decodeHex(s); err != nil {
				return nil, fmt.Errorf("invalid signature: %w", err)
			}
		}
		if len(b) != ed25519.SignatureSize {
			return nil, fmt.Errorf("invalid signature: expected %d bytes, got %d", ed25519.SignatureSize, len(b))
		}
		var sig keyflow.EdDSASignature
		copy(sig[:], b)
		return sig, nil
	}

	b, err := decodeHex(s)
	if err != nil {
		compact, b64Err := base64.StdEncoding.DecodeString(s)
		if b64Err != nil || chain != keyflow.Bitcoin || len(compact) != 65 {
			return nil, fmt.Errorf("invalid signature: %w", err)
		}
		return parseCompactSignature(compact)
	}

	switch {
	case len(b) == 64:
		return attachRecoveryID(scheme, new(big.Int).SetBytes(b[:32]), new(big.Int).SetBytes(b[32:]), payload, address)
	case len(b) > 0 && len(b) <= 72 && b[0] == 0x30:
		if r, sv, err := keyflow.ParseDERSignature(b); err == nil {
			return attachRecoveryID(scheme, r, sv, payload, address)
		}
	}
	if len(b) < 65 {
		return nil, fmt.Errorf("invalid signature: %d bytes", len(b))
	}

	v := new(big.Int).SetBytes(b[64:])
	if chainID == nil || v.Cmp(big.NewInt(35)) < 0 { //nolint:mnd
		chainID = nil
	}
	id, err := keyflow.DecodeV(v, chainID)
	if err != nil {
		return nil, err
	}
	return &keyflow.ECDSASignature{
		R:          new(big.Int).SetBytes(b[:32]),
		S:          new(big.Int).SetBytes(b[32:64]),
		RecoveryID: id,
	}, nil
}

// parseCompactSignature decodes the header || r || s form of a Bitcoin
// compact signature.
func parseCompactSignature(b []byte) (keyflow.Signature, error) {
	header := b[0]
	if header < 27 || header > 34 { //nolint:mnd
		return nil, fmt.Errorf("invalid compact signature header %d", header)
	}
	rsv := make([]byte, 0, 65)
	rsv = append(rsv, b[1:65]...)
	rsv = append(rsv, (header-27)&3) //nolint:mnd
	return keyflow.ParseECDSASignature(rsv)
}

func attachRecoveryID(scheme keyflow.Scheme, r, s *big.Int, payload []byte, address string) (keyflow.Signature, error) {
	if address == "" {
		return nil, fmt.Errorf("a signature without recovery id needs --address or --pubkey")
	}
	digest, err := scheme.Digest(payload)
	if err != nil {
		return nil, err
	}
	return keyflow.AttachRecoveryID(scheme.Chain(), r, s, digest, address)
}

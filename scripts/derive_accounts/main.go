// derive_accounts derives the default Bitcoin, Ethereum and Solana accounts
// from a BIP39 mnemonic for testing.
//
// Usage:
//
//	go run ./scripts/derive_accounts "your 24 word seed phrase here"
//
// Or with stdin:
//
//	echo "your 24 word seed phrase" | go run ./scripts/derive_accounts
//
// Note: Accounts are derived at m/44'/0'/0'/0/0 (bitcoin), m/44'/60'/0'/0/0
// (ethereum) and m/44'/501'/0'/0' (solana) with an empty BIP39 passphrase.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/complex-gh/keyflow"
)

func main() {
	var mnemonic string

	if len(os.Args) > 1 {
		mnemonic = strings.Join(os.Args[1:], " ")
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			mnemonic = strings.TrimSpace(scanner.Text())
		}
	}

	if mnemonic == "" {
		fmt.Fprintln(os.Stderr, "Usage: derive_accounts \"24 word seed phrase\"")
		fmt.Fprintln(os.Stderr, "   or: echo \"seed phrase\" | derive_accounts")
		os.Exit(1)
	}

	seed, err := keyflow.MnemonicToSeed(mnemonic, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	accounts, err := keyflow.DeriveDefaultAccounts(seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, acct := range accounts {
		fmt.Printf("%-9s %-20s %s\n", acct.Chain, acct.Path, acct.Address)
	}
}

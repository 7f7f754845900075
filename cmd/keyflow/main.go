// Package main provides the keyflow CLI tool for deriving, generating, signing
// and verifying Bitcoin, Ethereum and Solana keys.
package main

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/charmbracelet/lipgloss"
	"github.com/complex-gh/keyflow"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-tty"
	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/tyler-smith/go-bip39"
	"github.com/tyler-smith/go-bip39/wordlists"
	"golang.org/x/term"
	lang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	maxWidth = 72
)

var (
	baseStyle  = lipgloss.NewStyle().Margin(0, 0, 1, 2) //nolint:mnd
	red        = lipgloss.Color(completeColor("#FF4444", "196", "9"))
	yellow     = lipgloss.Color(completeColor("#E5C07B", "180", "3"))
	errorStyle = baseStyle.
			Foreground(red).
			Background(lipgloss.AdaptiveColor{Light: completeColor("#FFEBEB", "255", "7"), Dark: completeColor("#2B1A1A", "235", "8")}).
			Padding(1, 2) //nolint:mnd
	warnStyle = baseStyle.
			Foreground(yellow).
			Padding(0, 2) //nolint:mnd

	debugLevel     string
	language       string
	opensslBinary  string
	opensslTimeout time.Duration
	chainIDStr     string
	testnet        bool

	rootCmd = &cobra.Command{
		Use:   "keyflow",
		Short: "Derive, generate, sign and verify blockchain keys",
		Long: `Derive, generate, sign and verify Bitcoin, Ethereum and Solana keys.

Keys are derived from a BIP39 mnemonic, a raw seed or an Ed25519 SSH key
along BIP32 (secp256k1) and SLIP-0010 (Ed25519) paths.

SECURITY TIP: Add a space before the command to prevent it from being
saved in your shell history. For example:
    keyflow derive --mnemonic "..."
    ^ (note the leading space)
Most shells (bash, zsh) are configured to ignore commands that start
with a space. Check your HISTCONTROL or HIST_IGNORE_SPACE settings.`,
		Example: `  keyflow derive ~/.ssh/id_ed25519
  keyflow derive --mnemonic "abandon ... about" --chain eth
  keyflow keygen sol
  keyflow sign eth --message "hello"
  keyflow verify btc --address 1BgG... --message "hello" --signature ...
  keyflow checksum 0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := setupLogging(debugLevel); err != nil {
				return err
			}
			return setLanguage(language)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	manCmd = &cobra.Command{
		Use:          "man",
		Args:         cobra.NoArgs,
		Short:        "generate man pages",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			manPage, err := mcobra.NewManPage(1, rootCmd)
			if err != nil {
				//nolint: wrapcheck
				return err
			}
			manPage = manPage.WithSection("Copyright", "(C) 2025-2026 complex.\n"+
				"Released under MIT license.")
			fmt.Println(manPage.Build(roff.NewDocument()))
			return nil
		},
	}

	// completionCmd generates shell completion scripts for bash, zsh, fish, and powershell.
	completionCmd = &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for keyflow.

To load completions:

Bash:
  $ source <(keyflow completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ keyflow completion bash > /etc/bash_completion.d/keyflow
  # macOS:
  $ keyflow completion bash > $(brew --prefix)/etc/bash_completion.d/keyflow

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ keyflow completion zsh > "${fpath[1]}/_keyflow"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ keyflow completion fish | source

  # To load completions for each session, execute once:
  $ keyflow completion fish > ~/.config/fish/completions/keyflow.fish

PowerShell:
  PS> keyflow completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> keyflow completion powershell > keyflow.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		SilenceUsage:          true,
		RunE: func(_ *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				return rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				return rootCmd.GenFishCompletion(os.Stdout, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unknown shell: %s", args[0])
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&debugLevel, "debuglevel", "off", "Logging level (trace, debug, info, warn, error, critical, off)")
	rootCmd.PersistentFlags().StringVarP(&language, "language", "l", "en", "Language")
	rootCmd.PersistentFlags().StringVar(&opensslBinary, "openssl", "", "Path to the openssl binary used for key generation")
	rootCmd.PersistentFlags().DurationVar(&opensslTimeout, "timeout", keyflow.DefaultOpenSSLTimeout, "Timeout for the openssl key provider")
	rootCmd.PersistentFlags().StringVar(&chainIDStr, "chain-id", "", "Ethereum chain id for EIP-155 replay protection")
	rootCmd.PersistentFlags().BoolVar(&testnet, "testnet", false, "Use Bitcoin testnet encodings")

	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(mnemonicCmd)
	rootCmd.AddCommand(manCmd)
	rootCmd.AddCommand(completionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging routes library logging to stderr at the given level.
func setupLogging(level string) error {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("invalid debug level %q", level)
	}
	if lvl == btclog.LevelOff {
		keyflow.DisableLog()
		return nil
	}
	logger := btclog.NewBackend(os.Stderr).Logger(keyflow.Subsystem)
	logger.SetLevel(lvl)
	keyflow.UseLogger(logger)
	return nil
}

// parseChainID returns the --chain-id value, or nil when it was not given.
func parseChainID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, ok := new(big.Int).SetString(s, 0)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id %q", s)
	}
	return id, nil
}

func getWidth(maxw int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd())) //nolint: gosec
	if err != nil || w > maxw {
		return maxWidth
	}
	return w
}

func renderBlock(w io.Writer, s lipgloss.Style, width int, str string) {
	_, _ = io.WriteString(w, s.Width(width).Render(str))
	_, _ = io.WriteString(w, "\n")
}

// formatError shows err in a styled block when stdout is a terminal and
// returns a short error so the command exits with a non-zero code.
func formatError(err error, short string) error {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		b := strings.Builder{}
		w := getWidth(maxWidth)

		b.WriteRune('\n')
		renderBlock(&b, errorStyle, w, err.Error())
		b.WriteRune('\n')

		fmt.Print(b.String())
	}
	return fmt.Errorf("%s", short)
}

// formatPasswordError reports an SSH key that is not password-protected.
func formatPasswordError(err error) error {
	return formatError(err, "keys are required to be password-protected")
}

// printWarning writes a styled notice to stderr.
func printWarning(msg string) {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		b := strings.Builder{}
		renderBlock(&b, warnStyle, getWidth(maxWidth), msg)
		fmt.Fprint(os.Stderr, b.String())
		return
	}
	fmt.Fprintln(os.Stderr, "warning: "+msg)
}

// printBlock writes a titled output block.
func printBlock(header string, lines ...string) {
	fmt.Printf("[%s]\n", header)
	fmt.Println()
	for _, line := range lines {
		fmt.Println(line)
	}
	fmt.Println()
}

func completeColor(truecolor, ansi256, ansi string) string {
	//nolint: exhaustive
	switch lipgloss.ColorProfile() {
	case termenv.TrueColor:
		return truecolor
	case termenv.ANSI256:
		return ansi256
	}
	return ansi
}

// setLanguage sets the language of the bip39 mnemonic seed.
func setLanguage(language string) error {
	list := getWordlist(language)
	if list == nil {
		return fmt.Errorf("this language is not supported")
	}
	bip39.SetWordList(list)
	return nil
}

func sanitizeLang(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

var wordLists = map[lang.Tag][]string{
	lang.Chinese:              wordlists.ChineseSimplified,
	lang.SimplifiedChinese:    wordlists.ChineseSimplified,
	lang.TraditionalChinese:   wordlists.ChineseTraditional,
	lang.Czech:                wordlists.Czech,
	lang.AmericanEnglish:      wordlists.English,
	lang.BritishEnglish:       wordlists.English,
	lang.English:              wordlists.English,
	lang.French:               wordlists.French,
	lang.Italian:              wordlists.Italian,
	lang.Japanese:             wordlists.Japanese,
	lang.Korean:               wordlists.Korean,
	lang.Spanish:              wordlists.Spanish,
	lang.EuropeanSpanish:      wordlists.Spanish,
	lang.LatinAmericanSpanish: wordlists.Spanish,
}

func getWordlist(language string) []string {
	language = sanitizeLang(language)
	tag := lang.Make(language)
	en := display.English.Languages() // default language name matcher
	for t := range wordLists {
		if sanitizeLang(en.Name(t)) == language {
			tag = t
			break
		}
	}
	if tag == lang.Und { // Unknown language
		return nil
	}
	base, _ := tag.Base()
	btag := lang.MustParse(base.String())
	wl := wordLists[tag]
	if wl == nil {
		return wordLists[btag]
	}
	return wl
}

func readPassword(msg string) ([]byte, error) {
	_, _ = fmt.Fprint(os.Stderr, msg)
	t, err := tty.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open tty: %w", err)
	}
	defer t.Close()                                     //nolint: errcheck
	pass, err := term.ReadPassword(int(t.Input().Fd())) //nolint: gosec
	if err != nil {
		return nil, fmt.Errorf("could not read passphrase: %w", err)
	}
	return pass, nil
}

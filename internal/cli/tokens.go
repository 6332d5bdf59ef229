package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cypherc/internal/lexer"
	"github.com/roach88/cypherc/internal/token"
)

// TokensOptions holds flags for the tokens command.
type TokensOptions struct {
	*RootOptions
	Query string // inline statement
}

// TokenInfo is the JSON rendering of one scanned token.
type TokenInfo struct {
	Kind  string     `json:"kind"`
	Text  string     `json:"text"`
	Value string     `json:"value,omitempty"`
	Span  token.Span `json:"span"`
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokensOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tokens [file]",
		Short: "Dump the token stream of a statement",
		Long: `Scan a statement and print every token with its kind, text and
source span. Useful for debugging lexical issues such as keyword
folding or escaped identifiers.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "e", "", "inline statement to scan")

	return cmd
}

func runTokens(opts *TokensOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	src, err := singleInput(opts.Query, args)
	if err != nil {
		_ = formatter.Error("command", err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	toks, err := lexer.ScanAll(src)
	if err != nil {
		var lerr *lexer.Error
		if errors.As(err, &lerr) {
			_ = formatter.Error("lexical", lerr.Msg, lerr.Span)
			return NewExitError(ExitFailure, lerr.Error())
		}
		_ = formatter.Error("lexical", err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	if formatter.Format == "json" {
		infos := make([]TokenInfo, len(toks))
		for i, t := range toks {
			infos[i] = TokenInfo{Kind: t.Kind.String(), Text: t.Text, Value: t.Value, Span: t.Span}
		}
		return formatter.Success(infos)
	}

	for _, t := range toks {
		fmt.Fprintf(formatter.Writer, "%4d:%-3d %-14s %q\n", t.Span.Line, t.Span.Column, t.Kind, t.Text)
	}
	return nil
}

// singleInput resolves the one statement a command operates on, from
// either a file argument or the inline flag, but not both.
func singleInput(query string, args []string) (string, error) {
	switch {
	case query != "" && len(args) > 0:
		return "", errors.New("pass a file or --query, not both")
	case query != "":
		return query, nil
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading statement file: %w", err)
		}
		return string(data), nil
	default:
		return "", errors.New("no statement to scan: pass a file or --query")
	}
}

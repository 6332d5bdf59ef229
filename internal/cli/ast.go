package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/roach88/cypherc/internal/compiler"
	"github.com/roach88/cypherc/internal/parser"
)

// ASTOptions holds flags for the ast command.
type ASTOptions struct {
	*RootOptions
	Query     string // inline statement
	Normalize bool   // dump the normalized tree instead of the parsed one
}

// NewASTCommand creates the ast command.
func NewASTCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ASTOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ast [file]",
		Short: "Dump the syntax tree of a statement",
		Long: `Parse a statement and print its syntax tree as JSON. With
--normalize the tree is printed after the rewrite passes, which is the
shape the IR builder consumes.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAST(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "e", "", "inline statement to parse")
	cmd.Flags().BoolVar(&opts.Normalize, "normalize", false, "apply the rewrite passes before dumping")

	return cmd
}

func runAST(opts *ASTOptions, args []string, cmd *cobra.Command) error {
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

	stmt, err := parser.Parse(src)
	if err != nil {
		var serr *parser.SyntaxError
		if errors.As(err, &serr) {
			_ = formatter.Error("syntax", serr.Msg, serr.Span)
			return NewExitError(ExitFailure, serr.Error())
		}
		_ = formatter.Error("syntax", err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	if opts.Normalize {
		// The rewrite passes assume an analyzed statement, so run the
		// full pipeline and dump the statement it normalized.
		res, err := compiler.Compile(src)
		if err != nil {
			var cerr *compiler.CompileError
			if errors.As(err, &cerr) && cerr.Phase == compiler.PhaseSemantic {
				_ = formatter.Error(cerr.Semantic[0].Code, cerr.Error(), nil)
				return NewExitError(ExitFailure, cerr.Error())
			}
			_ = formatter.Error("internal", err.Error(), nil)
			return NewExitError(ExitFailure, err.Error())
		}
		stmt = res.Statement
	}

	dump := dumpNode(stmt)
	if formatter.Format == "json" {
		return formatter.Success(dump)
	}

	// The tree is JSON either way; text mode just skips the response
	// envelope.
	enc := json.NewEncoder(formatter.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}

// dumpNode converts a syntax tree node into the generic JSON shape:
// structs become objects with a "kind" key naming the node type, and
// anything with a String method renders as that string, which covers
// spans and the operator enums. Zero-valued fields are dropped.
func dumpNode(v any) any {
	return dumpValue(reflect.ValueOf(v))
}

func dumpValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return dumpValue(v.Elem())
	}

	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}

	switch v.Kind() {
	case reflect.Struct:
		out := map[string]any{"kind": v.Type().Name()}
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			if dumped := dumpValue(v.Field(i)); !emptyDump(dumped) {
				out[jsonKey(field.Name)] = dumped
			}
		}
		return out
	case reflect.Slice:
		if v.Len() == 0 {
			return nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = dumpValue(v.Index(i))
		}
		return out
	default:
		return v.Interface()
	}
}

func emptyDump(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	}
	return false
}

func jsonKey(name string) string {
	r := []rune(name)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

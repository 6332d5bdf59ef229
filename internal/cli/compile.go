package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cypherc/internal/compiler"
	"github.com/roach88/cypherc/internal/plancache"
	"github.com/roach88/cypherc/internal/semantic"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Query  string // inline statement, compiled as its own input
	Params string // parameter declaration file (.yaml, .yml or .cue)
	Cache  string // plan cache database path
	Output string // output file path; only valid with a single input
}

// StatementResult is the per-input success payload.
type StatementResult struct {
	Name          string                  `json:"name"`
	Hash          string                  `json:"hash"`
	Cached        bool                    `json:"cached,omitempty"`
	Snapshot      json.RawMessage         `json:"snapshot"`
	Notifications []semantic.Notification `json:"notifications,omitempty"`
}

// statementFailure pairs an input with the error that rejected it.
type statementFailure struct {
	Name string
	Err  *compiler.CompileError
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [files...]",
		Short: "Compile statements to canonical planner IR",
		Long: `Compile one or more query statements to canonical planner IR.

Each file argument holds a single statement. An inline statement can be
given with --query instead of, or in addition to, file arguments.
Inputs are compiled concurrently and reported in argument order.`,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "e", "", "inline statement to compile")
	cmd.Flags().StringVarP(&opts.Params, "params", "p", "", "parameter declaration file (.yaml, .yml or .cue)")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "plan cache database path")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonical snapshot to a file (single input only)")

	return cmd
}

// compileInput is one named statement to compile.
type compileInput struct {
	name string
	src  string
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	inputs, err := gatherInputs(opts, args)
	if err != nil {
		_ = formatter.Error("command", err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	compileOpts, err := buildCompileOptions(opts)
	if err != nil {
		_ = formatter.Error("command", err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	var cache *plancache.Cache
	if opts.Cache != "" {
		cache, err = plancache.Open(opts.Cache)
		if err != nil {
			msg := fmt.Sprintf("opening plan cache: %v", err)
			_ = formatter.Error("command", msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		defer cache.Close()
		formatter.VerboseLog("Plan cache session %s at %s", cache.SessionID(), opts.Cache)
	}

	formatter.VerboseLog("Compiling %d statement(s)", len(inputs))

	results := make([]*StatementResult, len(inputs))
	failures := make([]*statementFailure, len(inputs))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(4)
	for i, input := range inputs {
		g.Go(func() error {
			res, err := compiler.Compile(input.src, compileOpts...)
			if err != nil {
				var cerr *compiler.CompileError
				if !errors.As(err, &cerr) {
					return err
				}
				failures[i] = &statementFailure{Name: input.name, Err: cerr}
				return nil
			}

			sr := &StatementResult{
				Name:          input.name,
				Hash:          fmt.Sprintf("%016x", res.Hash),
				Snapshot:      res.Snapshot,
				Notifications: res.Notifications,
			}
			if cache != nil {
				if _, err := cache.Get(ctx, res.Hash); err == nil {
					sr.Cached = true
				} else if !errors.Is(err, plancache.ErrMiss) {
					return fmt.Errorf("reading plan cache: %w", err)
				} else if err := cache.Put(ctx, res.Hash, input.src, res.Snapshot); err != nil {
					return fmt.Errorf("writing plan cache: %w", err)
				}
			}
			results[i] = sr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = formatter.Error("command", err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	var failed []*statementFailure
	for _, f := range failures {
		if f != nil {
			failed = append(failed, f)
		}
	}
	if len(failed) > 0 {
		return outputCompileFailures(formatter, failed)
	}

	if opts.Output != "" {
		if len(inputs) != 1 {
			msg := "--output requires exactly one input"
			_ = formatter.Error("command", msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		if err := os.WriteFile(opts.Output, results[0].Snapshot, 0o644); err != nil {
			msg := fmt.Sprintf("writing output file: %v", err)
			_ = formatter.Error("command", msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
	}

	return outputCompileSuccess(formatter, results, opts.Output)
}

// gatherInputs resolves file arguments and the inline statement into
// the ordered list of inputs. The inline statement, when present, comes
// last.
func gatherInputs(opts *CompileOptions, args []string) ([]compileInput, error) {
	if len(args) == 0 && opts.Query == "" {
		return nil, errors.New("no statements to compile: pass files or --query")
	}

	inputs := make([]compileInput, 0, len(args)+1)
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading statement file: %w", err)
		}
		inputs = append(inputs, compileInput{name: path, src: string(data)})
	}
	if opts.Query != "" {
		inputs = append(inputs, compileInput{name: "<query>", src: opts.Query})
	}
	return inputs, nil
}

func buildCompileOptions(opts *CompileOptions) ([]compiler.Option, error) {
	if opts.Params == "" {
		return nil, nil
	}
	params, err := LoadParameters(opts.Params)
	if err != nil {
		return nil, err
	}
	return []compiler.Option{compiler.WithParameters(params)}, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, results []*StatementResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(results)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d statement(s)\n\n", len(results))
	for _, res := range results {
		suffix := ""
		if res.Cached {
			suffix = " (cached)"
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s%s\n", res.Name, res.Hash, suffix)
		for _, note := range res.Notifications {
			fmt.Fprintf(formatter.Writer, "    note [%s] %s: %s\n", note.Code, note.Span, note.Msg)
		}
	}
	fmt.Fprintln(formatter.Writer)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical snapshot to %s\n", outputFile)
	}

	return nil
}

// outputCompileFailures outputs the per-input compilation errors.
// Rejected statements are input errors, so the exit code is 1, not 2.
func outputCompileFailures(formatter *OutputFormatter, failed []*statementFailure) error {
	if formatter.Format == "json" {
		cliErrors := flattenFailures(failed)
		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("compilation failed for %d input(s)", len(failed)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, f := range failed {
		fmt.Fprintf(formatter.Writer, "%s:\n", f.Name)
		switch f.Err.Phase {
		case compiler.PhaseSyntax:
			se := f.Err.Syntax
			fmt.Fprintf(formatter.Writer, "  syntax %s: %s\n", se.Span, se.Msg)
		case compiler.PhaseSemantic:
			for _, se := range f.Err.Semantic {
				fmt.Fprintf(formatter.Writer, "  [%s] %s: %s\n", se.Code, se.Span, se.Msg)
			}
		default:
			fmt.Fprintf(formatter.Writer, "  internal: %v\n", f.Err.Internal)
		}
		fmt.Fprintln(formatter.Writer)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("compilation failed for %d input(s)", len(failed)))
}

// flattenFailures renders every failure as a CLIError, one per
// semantic error so codes and spans survive into the JSON output.
func flattenFailures(failed []*statementFailure) []CLIError {
	var out []CLIError
	for _, f := range failed {
		switch f.Err.Phase {
		case compiler.PhaseSyntax:
			se := f.Err.Syntax
			out = append(out, CLIError{
				Code:    "syntax",
				Message: fmt.Sprintf("%s: %s", f.Name, se.Msg),
				Details: se.Span,
			})
		case compiler.PhaseSemantic:
			for _, se := range f.Err.Semantic {
				out = append(out, CLIError{
					Code:    se.Code,
					Message: fmt.Sprintf("%s: %s", f.Name, se.Msg),
					Details: se.Span,
				})
			}
		default:
			out = append(out, CLIError{
				Code:    "internal",
				Message: fmt.Sprintf("%s: %v", f.Name, f.Err.Internal),
			})
		}
	}
	return out
}

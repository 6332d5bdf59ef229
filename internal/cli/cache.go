package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cypherc/internal/plancache"
)

// CacheOptions holds flags for the cache command.
type CacheOptions struct {
	*RootOptions
	Path string // plan cache database path
}

// CacheStats is the JSON payload of cache stats.
type CacheStats struct {
	Path    string `json:"path"`
	Entries int64  `json:"entries"`
	Swept   int64  `json:"swept,omitempty"`
}

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the plan cache",
	}

	cmd.PersistentFlags().StringVar(&opts.Path, "cache", "plans.db", "plan cache database path")

	cmd.AddCommand(newCacheStatsCommand(opts))
	cmd.AddCommand(newCacheSweepCommand(opts))

	return cmd
}

func newCacheStatsCommand(opts *CacheOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show plan cache statistics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(opts, cmd, func(formatter *OutputFormatter, cache *plancache.Cache) error {
				entries, err := cache.Len(cmd.Context())
				if err != nil {
					return err
				}
				stats := CacheStats{Path: opts.Path, Entries: entries}
				if formatter.Format == "json" {
					return formatter.Success(stats)
				}
				fmt.Fprintf(formatter.Writer, "%s: %d plan(s)\n", stats.Path, stats.Entries)
				return nil
			})
		},
	}
}

func newCacheSweepCommand(opts *CacheOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "sweep",
		Short:         "Drop plans stored by other sessions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(opts, cmd, func(formatter *OutputFormatter, cache *plancache.Cache) error {
				swept, err := cache.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				entries, err := cache.Len(cmd.Context())
				if err != nil {
					return err
				}
				stats := CacheStats{Path: opts.Path, Entries: entries, Swept: swept}
				if formatter.Format == "json" {
					return formatter.Success(stats)
				}
				fmt.Fprintf(formatter.Writer, "%s: swept %d plan(s), %d remain\n", stats.Path, stats.Swept, stats.Entries)
				return nil
			})
		},
	}
}

// withCache opens the configured cache and hands it to fn, translating
// failures into formatter output and exit codes.
func withCache(opts *CacheOptions, cmd *cobra.Command, fn func(*OutputFormatter, *plancache.Cache) error) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cache, err := plancache.Open(opts.Path)
	if err != nil {
		msg := fmt.Sprintf("opening plan cache: %v", err)
		_ = formatter.Error("command", msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	defer cache.Close()

	if err := fn(formatter, cache); err != nil {
		_ = formatter.Error("command", err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	return nil
}

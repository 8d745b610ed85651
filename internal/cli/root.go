// Package cli implements the actions command line tool.
package cli

import (
	"fmt"
	"slices"

	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"yaml", "json"}

// RootOptions holds global flags and the collaborators every command uses.
type RootOptions struct {
	Format string

	Registry *actions.Registry
	Features map[string]bool
	Logger   zerolog.Logger
}

// NewRootCommand creates the root command. registry is the set of
// destinations the commands operate on.
func NewRootCommand(registry *actions.Registry, features map[string]bool, logger zerolog.Logger) *cobra.Command {
	opts := &RootOptions{
		Registry: registry,
		Features: features,
		Logger:   logger,
	}

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Inspect and run destination actions",
		Long:  "Inspect destination field schemas, map events to payloads and perform actions without the queue.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "yaml", "output format (yaml|json)")

	cmd.AddCommand(NewDestinationsCommand(opts))
	cmd.AddCommand(NewMapCommand(opts))
	cmd.AddCommand(NewPerformCommand(opts))

	return cmd
}

package cli

import (
	"fmt"

	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/spf13/cobra"
)

// NewDestinationsCommand creates the destinations command.
func NewDestinationsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "destinations [name]",
		Short: "List destinations with their actions and field schemas",
		Example: `  actions destinations
  actions destinations salesforce --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := opts.Registry.Destinations()
			if len(args) == 1 {
				list = filterDestinations(list, args[0])
				if len(list) == 0 {
					return fmt.Errorf("unknown destination %q: must be one of %v", args[0], opts.Registry.Names())
				}
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, list)
		},
	}
}

func filterDestinations(list []*actions.Destination, name string) []*actions.Destination {
	for _, d := range list {
		if d.Name == name {
			return []*actions.Destination{d}
		}
	}
	return nil
}

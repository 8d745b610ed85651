package cli

import (
	"github.com/joshu-sajeev/destinations/internal/delivery"
	"github.com/spf13/cobra"
)

// MapOptions holds flags for the map command.
type MapOptions struct {
	*RootOptions
	Destination string
	Action      string
	Event       string
	Mapping     string
}

// NewMapCommand creates the map command, which resolves an event through an
// action's field schema and prints the validated payload.
func NewMapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MapOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map an event to an action payload",
		Example: `  actions map --destination podscribe --action track --event event.json
  cat event.json | actions map --destination salesforce --action opportunity --event - --mapping mapping.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := opts.Registry.Lookup(opts.Destination, opts.Action)
			if err != nil {
				return err
			}

			event, err := readJSON(cmd.InOrStdin(), opts.Event)
			if err != nil {
				return err
			}
			mapping, err := readMapping(cmd.InOrStdin(), opts.Mapping)
			if err != nil {
				return err
			}

			payload, err := delivery.MapEvent(def, event, mapping)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, payload)
		},
	}

	cmd.Flags().StringVar(&opts.Destination, "destination", "", "destination name")
	cmd.Flags().StringVar(&opts.Action, "action", "", "action name")
	cmd.Flags().StringVar(&opts.Event, "event", "", "event file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&opts.Mapping, "mapping", "", "field mapping overrides (JSON or YAML)")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("action")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

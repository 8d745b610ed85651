package cli

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/delivery"
	"github.com/joshu-sajeev/destinations/internal/dto"
	"github.com/spf13/cobra"
)

// PerformOptions holds flags for the perform command.
type PerformOptions struct {
	*RootOptions
	Destination string
	Action      string
	Payload     string
	Event       string
	Mapping     string
	Batch       bool
	Enable      []string
}

// NewPerformCommand creates the perform command, which runs an action once
// against the configured upstream.
func NewPerformCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PerformOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "perform",
		Short: "Run an action synchronously",
		Example: `  actions perform --destination podscribe --action track --event event.json
  actions perform --destination salesforce --action opportunity --payload batch.json --batch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return performAction(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Destination, "destination", "", "destination name")
	cmd.Flags().StringVar(&opts.Action, "action", "", "action name")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "mapped payload file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "event file to map first (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&opts.Mapping, "mapping", "", "field mapping overrides, used with --event")
	cmd.Flags().BoolVar(&opts.Batch, "batch", false, "treat --payload as an array of payloads")
	cmd.Flags().StringSliceVar(&opts.Enable, "feature", nil, "enable a feature flag (repeatable)")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("action")
	cmd.MarkFlagsOneRequired("payload", "event")
	cmd.MarkFlagsMutuallyExclusive("payload", "event")
	cmd.MarkFlagsMutuallyExclusive("batch", "event")

	return cmd
}

func performAction(cmd *cobra.Command, opts *PerformOptions) error {
	def, err := opts.Registry.Lookup(opts.Destination, opts.Action)
	if err != nil {
		return err
	}

	var in dto.ActionInput
	switch {
	case opts.Event != "":
		if in.Event, err = readJSON(cmd.InOrStdin(), opts.Event); err != nil {
			return err
		}
		if in.Mapping, err = readMapping(cmd.InOrStdin(), opts.Mapping); err != nil {
			return err
		}
	case opts.Batch:
		raw, err := readJSON(cmd.InOrStdin(), opts.Payload)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &in.Batch); err != nil {
			return fmt.Errorf("--batch payload must be a JSON array: %w", err)
		}
	default:
		if in.Payload, err = readJSON(cmd.InOrStdin(), opts.Payload); err != nil {
			return err
		}
	}

	raw, batch, err := delivery.ResolveInput(def, in)
	if err != nil {
		return err
	}

	features := make(map[string]bool, len(opts.Features)+len(opts.Enable))
	maps.Copy(features, opts.Features)
	for _, f := range opts.Enable {
		features[f] = true
	}

	log := opts.Logger.With().Str("destination", opts.Destination).Str("action", opts.Action).Logger()
	ec := actions.ExecContext{
		Features: features,
		Logger:   log,
		Stats:    actions.LogStats{Logger: log},
	}

	res, err := def.Run(log.WithContext(cmd.Context()), ec, raw, batch)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.Format, res)
}

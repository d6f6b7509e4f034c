package main

import (
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	saf "github.com/reoring/saf"
	js "github.com/reoring/saf/jsonschema"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the exported histogram view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(js.WithDraft(saf.RecordSchema(s.opt.Dialect)))
		},
	}
}

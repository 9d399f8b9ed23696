package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-staged/model"
	"github.com/goliatone/go-staged/schema"
)

// newSchemaCmd describes the edited tree. It needs no session, so it
// replaces the root's loading hook with a no-op.
func newSchemaCmd(a *app) *cobra.Command {
	var title, version string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print an OpenAPI description of the staged document",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := schema.Generate(model.DataState{}, schema.WithInfo(title, version))
			if err != nil {
				return err
			}
			return a.print(doc)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "document title")
	cmd.Flags().StringVar(&version, "version", "", "document version")
	return cmd
}

package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newSchemaCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of recipe files",
		Long: `Print the JSON Schema of recipe files, including the parameters of every
registered action. Point your editor's YAML language server at it for
completion and inline validation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			s, err := a.newSession(cfg, "")
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.validator.Document()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if output == "" {
				_, err = a.out.Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the schema to a file instead of stdout")
	return cmd
}

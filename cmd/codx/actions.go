package main

import (
	"github.com/spf13/cobra"
)

func newActionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the action types recipes can use",
		Args:  cobra.NoArgs,
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

			infos := s.registry.List()
			width := 0
			for _, info := range infos {
				width = max(width, len(info.Name))
			}
			for _, info := range infos {
				s.console.Field(info.Name, info.Description, width)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codx-dev/codx/internal/engine"
	"github.com/codx-dev/codx/internal/logging"
)

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search the registry for recipe packages",
		Args:  cobra.ExactArgs(1),
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

			term := args[0]
			res, err := s.loader.Search(cmd.Context(), term)
			if err != nil {
				s.console.Error(engine.ErrorMessage(err))
				return &reportedError{err}
			}

			c := s.console
			c.Title(fmt.Sprintf("Search results for %q", term))
			for i, obj := range res.Objects {
				pkg := obj.Package
				description := pkg.Description
				if description == "" {
					description = "No description"
				}
				author := pkg.Publisher.Username
				if author == "" {
					author = "Unknown"
				}
				c.Message(fmt.Sprintf("%d. %s", i+1, pkg.Name), logging.StyleDefault)
				c.Message("   "+description, logging.StyleDefault)
				c.Message(fmt.Sprintf("   Version: %s | Author: %s", pkg.Version, author), logging.StyleDefault)
				c.Message("   Link: "+pkg.Link(), logging.StyleDefault)
				c.Message("", logging.StyleDefault)
			}

			plural := ""
			if res.Total > 1 {
				plural = "s"
			}
			c.Message(fmt.Sprintf("Found %d package%s.", res.Total, plural), logging.StyleInfo)
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/codx-dev/codx/internal/recipe"
	"github.com/codx-dev/codx/pkg/schema"
)

func newValidateCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate <recipe>",
		Short: "Check a local recipe file without running it",
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

			path := recipeFile(args[0])
			content, err := os.ReadFile(path)
			if err != nil {
				return schema.NewErrorf(schema.ErrCodeRecipeNotFound, "Recipe file not found: %s", path).WithCause(err)
			}

			var doc any
			if err := yaml.Unmarshal(content, &doc); err != nil {
				return schema.NewError(schema.ErrCodeRecipeLoad, "Failed to load recipe").WithCause(err)
			}
			res := s.validator.ValidateDocument(doc)

			if asJSON {
				if err := a.writeJSON(res); err != nil {
					return err
				}
			} else if res.Valid() {
				s.console.Success(fmt.Sprintf("%s is valid", path))
			} else {
				s.console.Error(fmt.Sprintf("%s has %d issue(s):", path, len(res.Issues)))
				for _, issue := range res.Issues {
					s.console.Error(fmt.Sprintf("  %s: %s", issue.Path, issue.Message))
				}
			}

			if !res.Valid() {
				return &reportedError{errors.New("invalid recipe")}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the validation result as JSON")
	return cmd
}

// recipeFile maps a directory to the recipe file it contains.
func recipeFile(path string) string {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return filepath.Join(path, recipe.FileName)
	}
	return path
}

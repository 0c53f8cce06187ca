package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPromptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List the section prompts in canonical order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			names, err := a.catalog.Available()
			if err != nil {
				return err
			}
			for _, name := range names {
				tmpl, err := a.catalog.Load(name)
				if err != nil {
					return err
				}
				provider, _ := tmpl.Config["provider"].(string)
				if provider == "" {
					provider = "default"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", name, faintColor.Sprint(provider))
			}
			return nil
		},
	}
}

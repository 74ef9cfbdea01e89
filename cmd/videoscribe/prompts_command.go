package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"video-scribe-go/internal/apiclient"
)

func newPromptsCommand(client func() *apiclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List the server's prompt templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := client().Prompts(cmd.Context())
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"ID", "Title", "Template"})
			for _, p := range catalog {
				tw.AppendRow(table.Row{p.ID, p.Title, p.Template})
			}
			tw.Render()
			return nil
		},
	}
}

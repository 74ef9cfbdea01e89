package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"video-scribe-go/internal/apiclient"
)

func newAssetsCommand(client func() *apiclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "List uploaded audio assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assets, err := client().Assets(cmd.Context())
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"ID", "Name"})
			for _, a := range assets {
				tw.AppendRow(table.Row{a.ID, a.Name})
			}
			tw.Render()
			return nil
		},
	}
}

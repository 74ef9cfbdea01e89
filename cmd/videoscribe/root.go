package main

import (
	"os"

	"github.com/spf13/cobra"

	"video-scribe-go/internal/apiclient"
)

func newRootCommand() *cobra.Command {
	var serverFlag string

	rootCmd := &cobra.Command{
		Use:           "videoscribe",
		Short:         "Turn videos into transcripts and AI-generated content",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", defaultServerURL(), "Base URL of the video-scribe API")

	client := func() *apiclient.Client { return apiclient.New(serverFlag) }

	rootCmd.AddCommand(newRunCommand(client))
	rootCmd.AddCommand(newGenerateCommand(client))
	rootCmd.AddCommand(newPromptsCommand(client))
	rootCmd.AddCommand(newAssetsCommand(client))

	return rootCmd
}

func defaultServerURL() string {
	if v := os.Getenv("VIDEOSCRIBE_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

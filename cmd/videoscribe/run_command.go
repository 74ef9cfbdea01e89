package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"video-scribe-go/internal/apiclient"
	"video-scribe-go/internal/convert"
	"video-scribe-go/internal/pipeline"
	"video-scribe-go/internal/types"
)

func newRunCommand(client func() *apiclient.Client) *cobra.Command {
	var hint string
	var readyWait time.Duration

	cmd := &cobra.Command{
		Use:   "run <video-file>",
		Short: "Convert, upload, and transcribe one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read video: %w", err)
			}
			input := types.MediaAsset{
				Filename: filepath.Base(path),
				MIMEType: mime.TypeByExtension(filepath.Ext(path)),
				Bytes:    data,
			}

			api := client()
			if err := api.WaitReady(cmd.Context(), readyWait); err != nil {
				return err
			}

			bar := progressbar.NewOptions(100,
				progressbar.OptionSetDescription("converting"),
				progressbar.OptionClearOnFinish(),
			)
			ctrl := pipeline.NewController(convert.New(), api, api, input, hint, pipeline.Observer{
				OnState: func(s pipeline.State) {
					fmt.Fprintf(cmd.ErrOrStderr(), "stage: %s\n", s)
				},
				OnProgress: func(f float64) {
					_ = bar.Set(int(f * 100))
				},
			})

			res, err := ctrl.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "asset id: %s\n\n%s\n", res.Asset.ID, res.Transcript)
			return nil
		},
	}

	cmd.Flags().StringVar(&hint, "hint", "", "Comma-separated keywords mentioned in the video")
	cmd.Flags().DurationVar(&readyWait, "ready-wait", 15*time.Second, "How long to wait for the server to come up")
	return cmd
}

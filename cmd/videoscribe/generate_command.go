package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"video-scribe-go/internal/apiclient"
	"video-scribe-go/internal/types"
)

func newGenerateCommand(client func() *apiclient.Client) *cobra.Command {
	var (
		promptID    string
		template    string
		tier        string
		temperature float32
		buffered    bool
	)

	cmd := &cobra.Command{
		Use:   "generate <asset-id>",
		Short: "Generate a completion from an asset's transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := client()

			if template == "" && promptID == "" {
				return fmt.Errorf("either --template or --prompt is required")
			}
			if template == "" {
				catalog, err := api.Prompts(cmd.Context())
				if err != nil {
					return err
				}
				for _, p := range catalog {
					if p.ID == promptID {
						template = p.Template
						break
					}
				}
				if template == "" {
					return fmt.Errorf("prompt %q not found in catalog", promptID)
				}
			}

			req := types.CompletionRequest{
				AssetID:        args[0],
				PromptTemplate: template,
				ModelTier:      types.ModelTier(tier),
				Temperature:    temperature,
			}

			if buffered {
				res, err := api.Generate(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "model: %s\n", res.Model)
				fmt.Fprintln(cmd.OutOrStdout(), res.Text)
				return nil
			}

			ch, err := api.GenerateStream(cmd.Context(), req)
			if err != nil {
				return err
			}
			for chunk := range ch {
				if chunk.Err != nil {
					fmt.Fprintln(cmd.OutOrStdout())
					return chunk.Err
				}
				fmt.Fprint(cmd.OutOrStdout(), chunk.Delta)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&promptID, "prompt", "", "Catalog prompt id to use as template")
	cmd.Flags().StringVar(&template, "template", "", "Literal prompt template (overrides --prompt)")
	cmd.Flags().StringVar(&tier, "tier", string(types.TierA), "Model tier (tierA or tierB)")
	cmd.Flags().Float32Var(&temperature, "temperature", 0.5, "Sampling temperature in [0,1]")
	cmd.Flags().BoolVar(&buffered, "buffered", false, "Wait for the full response instead of streaming")
	return cmd
}

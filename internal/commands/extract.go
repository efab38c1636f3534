package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newExtractCommand(g *globalFlags) *cobra.Command {
	var extractor string

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Extract one statement and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("extractor") {
				cfg.Extractor.Kind = extractor
			}

			ctx := cmd.Context()
			reg, err := newRegistry(ctx, cfg, g.logger())
			if err != nil {
				return err
			}
			ex, err := selectExtractor(reg, cfg.Extractor.Kind)
			if err != nil {
				return err
			}

			raw, err := ex.Extract(ctx, args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(raw, "", "    ")
			if err != nil {
				return fmt.Errorf("encoding statement: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&extractor, "extractor", "", "extractor: azure, gemini, pdftext or json")

	return cmd
}

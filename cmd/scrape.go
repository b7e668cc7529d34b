package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/safescrape/internal/scrape"
)

func newScrapeCmd() *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrape one URL and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			result, err := appInstance.Engine().Scrape(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			var payload any = result
			if result.Outcome == scrape.OutcomeDisallowed {
				payload = map[string]string{"error": result.DisallowReason}
			}
			if err := enc.Encode(payload); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

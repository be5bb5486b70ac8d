package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/octobees/leads-prospector/internal/service"
)

func (c *cli) discoverCmd() *cobra.Command {
	var (
		terms      []string
		maxResults int
	)
	cmd := &cobra.Command{
		Use:     "discover",
		Short:   "Search Google Maps for each term and store new businesses",
		Example: `  prospector discover --term "padaria" --term "oficina mecânica" --max 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxResults == 0 {
				maxResults = c.cfg.Campaign.MaxScrapingResults
			}
			res := c.app.Discovery.Run(cmd.Context(), service.DiscoveryRequest{
				SearchTerms:       append(terms, args...),
				MaxResultsPerTerm: maxResults,
				Progress:          progressTo(cmd.ErrOrStderr()),
			})
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&terms, "term", "t", nil, "search term (repeatable); positional arguments are terms too")
	cmd.Flags().IntVar(&maxResults, "max", 0, "maximum results per term (default MAX_SCRAPING_RESULTS)")
	return cmd
}

func (c *cli) outreachCmd() *cobra.Command {
	var (
		maxMessages int
		perHour     int
		category    string
		testMode    bool
	)
	cmd := &cobra.Command{
		Use:   "outreach",
		Short: "Send the outreach message to businesses never contacted before",
		Example: `  prospector outreach --max 10 --per-hour 10 --category padaria
  prospector outreach --test --max 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := c.app.Outreach.Run(cmd.Context(), service.OutreachRequest{
				MaxMessages:     maxMessages,
				MessagesPerHour: perHour,
				CategoryFilter:  category,
				TestMode:        testMode,
				Progress:        progressTo(cmd.ErrOrStderr()),
			})
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Error)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxMessages, "max", 0, "maximum messages in this run (default 50)")
	cmd.Flags().IntVar(&perHour, "per-hour", 0, "messages per hour (default MAX_MESSAGES_PER_HOUR)")
	cmd.Flags().StringVar(&category, "category", "", "only contact businesses whose category contains this text")
	cmd.Flags().BoolVar(&testMode, "test", false, "record sends without opening the browser")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every stored business to a CSV file under EXPORT_DIR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.app.Exporter.Export(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Store businesses from a CSV file in the export layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			summary, err := c.app.Importer.ImportCSV(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print totals and recent campaign sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.app.Stats.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

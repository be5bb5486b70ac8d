// Command prospector runs discovery and outreach campaigns in the foreground.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/octobees/leads-prospector/internal/app"
	"github.com/octobees/leads-prospector/internal/config"
)

// cli carries the state shared by every subcommand of one invocation.
type cli struct {
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	err := newRootCmd(c).ExecuteContext(ctx)
	c.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "prospector",
		Short: "Local-business prospecting campaigns",
		Long: `prospector finds local businesses on Google Maps and contacts them on WhatsApp.

Configuration is read from the environment (and a .env file when present),
the same way the HTTP server reads it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if c.verbose {
				cfg.LogLevel = "debug"
			}
			c.cfg = cfg

			if c.logger, err = app.NewLogger(cfg.LogLevel); err != nil {
				return err
			}
			c.app, err = app.New(cmd.Context(), cfg, c.logger, nil)
			return err
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		c.discoverCmd(),
		c.outreachCmd(),
		c.exportCmd(),
		c.importCmd(),
		c.statsCmd(),
	)
	return root
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func progressTo(w io.Writer) func(string) {
	return func(message string) {
		fmt.Fprintln(w, message)
	}
}

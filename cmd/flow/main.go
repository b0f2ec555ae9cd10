// Command flow runs demonstration pipelines built on the go-flow packages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ducka/go-flow/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	settings   config.Settings
)

var rootCmd = &cobra.Command{
	Use:           "flow",
	Short:         "Run demand-driven stream pipelines",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if _, err := config.ConfigureLogging(loaded.Log); err != nil {
			return err
		}
		settings = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "flow.yaml", "path to the YAML config file")
	rootCmd.AddCommand(demoCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

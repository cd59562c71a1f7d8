package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/setoncarmichael/claude-usage-widget/internal/config"
	"github.com/setoncarmichael/claude-usage-widget/internal/version"
)

func main() {
	if os.Getenv("CLAUDE_WIDGET_DEBUG") != "" {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Config path: %s\n", config.ConfigPath())
		os.Exit(1)
	}

	root := cobra.Command{
		Use:   "claude-usage-widget",
		Short: "A desktop widget showing Claude rate-limit usage and reset timers.",
		Run: func(_ *cobra.Command, _ []string) {
			runWidget(cfg)
		},
	}

	root.AddCommand(
		newStatusCommand(cfg),
		newLoginCommand(cfg),
		newLogoutCommand(cfg),
		newVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version.",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

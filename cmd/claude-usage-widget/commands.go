package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
	"github.com/setoncarmichael/claude-usage-widget/internal/config"
	"github.com/setoncarmichael/claude-usage-widget/internal/credentials"
)

func newStatusCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print current usage without starting the widget.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := credentials.NewStore()
			cred, ok := store.Get()
			if !ok {
				return errors.New("not logged in, run: claude-usage-widget login")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			client := claude.NewClient(cfg.BaseURL)
			usage, err := client.FetchUsage(ctx, cred.SessionKey, cred.OrganizationID)
			if err != nil {
				if errors.Is(err, claude.ErrUnauthorized) {
					return errors.New("session expired, run: claude-usage-widget login")
				}
				return err
			}

			out := cmd.OutOrStdout()
			if usage.NoUsageYet() {
				fmt.Fprintln(out, "No usage yet. Send a message to start a session.")
				return nil
			}

			now := time.Now()
			printWindow(out, "Session (5h)", usage.FiveHour, now)
			printWindow(out, "Week", usage.SevenDay, now)
			return nil
		},
	}
}

func printWindow(out io.Writer, label string, w claude.Window, now time.Time) {
	remaining := claude.NoResetPlaceholder
	if d, ok := w.Remaining(now); ok {
		remaining = claude.FormatRemaining(d)
	}
	fmt.Fprintf(out, "%-14s %5.1f%%  resets in %s\n", label, w.Clamped(), remaining)
}

func newLoginCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Open a browser window to sign in to Claude.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := credentials.NewStore()
			client := claude.NewClient(cfg.BaseURL)
			logins := newLoginManager(cfg, client, store)

			done := make(chan error, 1)
			err := logins.StartInteractive(cmd.Context(), func(cred credentials.Credential, err error) {
				done <- err
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Waiting for sign-in to complete...")
			if err := <-done; err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		},
	}
}

func newLogoutCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session and browser cookie.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := credentials.NewStore()
			if err := store.Clear(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()
			if err := clearSessionCookie(cfg)(ctx); err != nil {
				// The stored credential is already gone; a leftover browser
				// cookie only means the next login may resolve instantly.
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not clear browser cookie: %v\n", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

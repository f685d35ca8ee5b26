package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luciancaetano/cdpnet/cdp"
)

// targetTable renders targets with the columns that matter on a terminal.
type targetTable []cdp.TargetInfo

func (t targetTable) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(t))
	for _, target := range t {
		rows = append(rows, []string{target.ID, target.Type, target.Title, target.URL, target.WebSocketDebuggerURL})
	}
	return []string{"ID", "TYPE", "TITLE", "URL", "WEBSOCKET"}, rows
}

func (a *app) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.cfg.Timeout)
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List inspectable targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd)
			defer cancel()

			targets, err := cdp.List(ctx, a.discoveryOptions())
			if err != nil {
				return fmt.Errorf("failed to list targets: %w", err)
			}
			a.print(cmd, targetTable(targets))
			return nil
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the peer's version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd)
			defer cancel()

			v, err := cdp.Version(ctx, a.discoveryOptions())
			if err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			a.print(cmd, v)
			return nil
		},
	}
}

func (a *app) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new [url]",
		Short: "Open a new target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd)
			defer cancel()

			var url string
			if len(args) == 1 {
				url = args[0]
			}
			target, err := cdp.New(ctx, a.discoveryOptions(), url)
			if err != nil {
				return fmt.Errorf("failed to open target: %w", err)
			}
			a.print(cmd, targetTable{*target})
			return nil
		},
	}
}

func (a *app) activateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <target-id>",
		Short: "Bring a target to the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd)
			defer cancel()

			if err := cdp.Activate(ctx, a.discoveryOptions(), args[0]); err != nil {
				return fmt.Errorf("failed to activate target: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Target %q activated.\n", args[0])
			return nil
		},
	}
}

func (a *app) closeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <target-id>",
		Short: "Close a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd)
			defer cancel()

			if err := cdp.Close(ctx, a.discoveryOptions(), args[0]); err != nil {
				return fmt.Errorf("failed to close target: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Target %q closed.\n", args[0])
			return nil
		},
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/internal/filter"
	"github.com/luciancaetano/cdpnet/internal/output"
)

func (a *app) callCmd() *cobra.Command {
	var (
		session string
		raw     bool
	)

	cmd := &cobra.Command{
		Use:   "call <Domain.method> [json-params]",
		Short: "Issue one command and print its result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params any
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("params are not valid JSON: %s", args[1])
				}
				params = json.RawMessage(args[1])
			}

			conn, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close(context.Background())

			ctx, cancel := a.withTimeout(cmd)
			defer cancel()

			var res json.RawMessage
			if raw {
				res, err = conn.Send(ctx, args[0], params, session)
			} else {
				res, err = conn.API().Call(ctx, args[0], params, session)
			}
			if err != nil {
				return fmt.Errorf("%s failed: %w", args[0], err)
			}
			a.print(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "session id to address")
	cmd.Flags().BoolVar(&raw, "raw", false, "send even if the descriptor does not list the command")
	return cmd
}

func (a *app) listenCmd() *cobra.Command {
	var (
		session string
		expr    string
		count   int
		raw     bool
	)

	cmd := &cobra.Command{
		Use:   "listen <Domain.event>...",
		Short: "Stream events until interrupted",
		Long: `Stream events until interrupted, --count events were printed or the
connection closes. --filter takes an expression over method, sessionId
and params, e.g. 'params.request.url startsWith "https://"'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filter.Compile(expr)
			if err != nil {
				return err
			}

			conn, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close(context.Background())

			events := make(chan cdpnet.Event, 256)
			handler := func(ev cdpnet.Event) {
				select {
				case events <- ev:
				default:
					a.log.Warn().Str("method", ev.Method).Msg("event dropped, output too slow")
				}
			}
			for _, name := range args {
				if raw {
					defer conn.Subscribe(name, session, handler)()
					continue
				}
				off, err := conn.API().Subscribe(name, session, handler)
				if err != nil {
					return err
				}
				defer off()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			printer := output.NewEventPrinter(cmd.OutOrStdout(), a.noColor)
			structured := a.cfg.Output == "json" || a.cfg.Output == "yaml"
			printed := 0
			for {
				select {
				case ev := <-events:
					ok, err := f.Match(ev)
					if err != nil {
						a.log.Warn().Err(err).Str("method", ev.Method).Msg("filter failed")
						continue
					}
					if !ok {
						continue
					}
					if structured {
						a.print(cmd, ev)
					} else if err := printer.Print(ev); err != nil {
						return err
					}
					printed++
					if count > 0 && printed >= count {
						return nil
					}
				case <-conn.Done():
					return cdpnet.ErrConnectionClosed
				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "only events of this session")
	cmd.Flags().StringVar(&expr, "filter", "", "expression an event must satisfy to be printed")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after printing this many events")
	cmd.Flags().BoolVar(&raw, "raw", false, "subscribe even if the descriptor does not list the event")
	return cmd
}

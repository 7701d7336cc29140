package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	httpapi "github.com/denisok6893-rgb/buybox-recommender/internal/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			api := httpapi.NewServer(a.engine, a.store, a.weekly, a.convergence, a.logger)
			srv := &http.Server{
				Addr:         a.cfg.Server.Address,
				Handler:      api.Routes(),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info().Str("address", srv.Addr).Msg("API listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newWeeklyCommand(configPath *string) *cobra.Command {
	var (
		userID string
		count  int
	)
	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Generate and store this week's batches for every market",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			batches, err := a.weekly.Run(cmd.Context(), userID, count)
			if err != nil {
				return err
			}
			for _, b := range batches {
				a.logger.Info().
					Str("market_key", b.MarketKey).
					Str("status", string(b.Status)).
					Msg(b.Summary)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "only process this user's markets")
	cmd.Flags().IntVar(&count, "count", 0, "properties per market (0 uses the configured default)")
	return cmd
}

func newConvergeCommand(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "converge",
		Short: "Re-evaluate a user's market phases and print the progress report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.convergence.Run(cmd.Context(), userID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user to evaluate")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and chat UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, log, err := bootstrap(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeQuietly(res, log)

			if addr == "" {
				addr = res.Config.BindAddr
			}
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           res.API.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			res.Sessions.StartJanitor(ctx, time.Minute)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info().Str("addr", addr).Msg("server listening")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info().Msg("shutdown signal received")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), res.Config.ShutdownTimeout)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("graceful shutdown failed")
					return httpServer.Close()
				}
				return nil
			})

			err = g.Wait()
			log.Info().Msg("shutdown complete")
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides APP_BIND_ADDR)")
	return cmd
}

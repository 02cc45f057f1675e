package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"datahunter/internal/adapters/authstore"
	"datahunter/internal/adapters/browser"
	"datahunter/internal/adapters/web"
	"datahunter/internal/collector/session"
	"datahunter/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon and its control API",
	Long:  "Opens every WATCH_URLS tab, keeps their widgets in step with the pages and serves the control API on PORT.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	go func() {
		if err := rt.coord.Run(ctx); err != nil {
			log.GlobalErrorCtx(ctx, "background coordinator stopped", "error", err)
		}
	}()

	sessions := session.NewManager()
	unsubscribe := rt.store.OnChange(func(c authstore.Change) {
		if c.Key == authstore.KeyAccess {
			sessions.AccountChanged(c.Present)
		}
	})
	defer unsubscribe()

	var tabs []*browser.Tab
	for _, url := range rt.cfg.WatchURLs {
		s, tab, err := rt.open(ctx, url)
		if err != nil {
			log.GlobalErrorCtx(ctx, "failed to open watched tab", "url", url, "error", err)
			continue
		}
		tabs = append(tabs, tab)
		sessions.Watch(ctx, url, s)
		log.GlobalInfoCtx(ctx, "watching tab", "url", url)
	}

	limiter := web.NewRateLimiter(rt.cfg.SubmitLimitPerMinute, time.Minute)
	defer limiter.Close()
	app := web.NewApp()
	web.SetupRoutes(app, web.NewHandlers(sessions, rt.coord, rt.hub), limiter)

	errs := make(chan error, 1)
	go func() {
		log.GlobalInfo("control api listening", "port", rt.cfg.Port)
		errs <- app.Listen(":" + rt.cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err = <-errs:
		log.GlobalErrorCtx(ctx, "control api stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := app.ShutdownWithContext(shutdownCtx); shutdownErr != nil {
		log.GlobalWarn("control api shutdown failed", "error", shutdownErr)
	}

	stop()
	sessions.Close()
	for _, tab := range tabs {
		tab.Close()
	}
	<-rt.coord.Done()
	log.GlobalInfo("datahunter stopped")
	return err
}

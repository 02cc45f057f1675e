package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"datahunter/internal/collector/session"
	"datahunter/internal/collector/widget"
	"datahunter/pkg/log"
)

var (
	collectSubmit  bool
	collectTimeout time.Duration
)

var collectCmd = &cobra.Command{
	Use:   "collect <url>",
	Short: "Collect the records of one page and print them",
	Long: `Opens url in a tab, waits until every mounted widget settles and prints
their views as JSON. With --submit each ready widget is submitted first.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().BoolVar(&collectSubmit, "submit", false, "submit every ready widget")
	collectCmd.Flags().DurationVar(&collectTimeout, "timeout", 2*time.Minute, "give up after this long")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), collectTimeout)
	defer cancel()

	rt, err := setup(os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	go rt.coord.Run(ctx)

	s, tab, err := rt.open(ctx, args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer tab.Close()

	runCtx, stopRun := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Run(runCtx); err != nil {
			log.GlobalWarnCtx(ctx, "session stopped", "error", err)
		}
	}()
	defer func() {
		stopRun()
		<-done
	}()

	widgets, err := mounted(ctx, s)
	if err != nil {
		return err
	}

	views := make([]widget.View, 0, len(widgets))
	for _, w := range widgets {
		v, err := w.Settle(ctx)
		if err != nil {
			return fmt.Errorf("widget %s did not settle: %w", w.ID(), err)
		}
		if collectSubmit {
			if err := w.Submit(); err != nil {
				log.GlobalWarnCtx(ctx, "submit refused", "widget", w.ID(), "error", err)
			} else if v, err = w.Settle(ctx); err != nil {
				return fmt.Errorf("widget %s did not settle after submit: %w", w.ID(), err)
			}
		}
		views = append(views, v)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

// mounted polls until the session has mounted at least one widget.
func mounted(ctx context.Context, s *session.Session) ([]widget.Controller, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		if ws := s.Widgets(); len(ws) > 0 {
			return ws, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, errors.New("no collectable content found on the page")
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

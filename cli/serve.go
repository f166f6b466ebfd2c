package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tdr-review/api/handler"
	"tdr-review/api/router"
	"tdr-review/job"
	"tdr-review/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the stale document reaper",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		// a document still processing after twice the poll budget has lost its worker
		reaper := job.NewReaper(a.projects, 2*cfg.PollTimeout)
		c, err := job.StartCronJob(reaper, cfg.ReaperSchedule)
		if err != nil {
			return err
		}
		defer c.Stop()

		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		r := router.New(
			handler.NewProjectHandler(a.projects),
			handler.NewDocumentHandler(a.projects, a.extractions),
		)
		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

		errCh := make(chan error, 1)
		go func() {
			logger.Info(ctx, "server running", "addr", cfg.HTTPAddr, "engine", cfg.EngineAPI)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

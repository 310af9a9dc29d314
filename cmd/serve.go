package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"blog_backend/auth"
	"blog_backend/server"
	"blog_backend/sitemap"
	"blog_backend/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the sitemap worker",
	Long: `Serve starts the REST API, the admin endpoints and the AI generation
endpoint. Saving an indexable post schedules a sitemap rebuild in the
background. SIGINT or SIGTERM shuts everything down gracefully.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "http listen address (overrides HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.ServerAddr = serveAddr
	}
	logger := newLogger(os.Stdout, cfg.Level(), false)
	if cfg.SecretKey == "" {
		return errors.New("SECRET_KEY is required to sign tokens")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DatabaseDSN, &logger)
	if err != nil {
		return err
	}
	defer st.Close()

	agent, err := newAgent(ctx, cfg, &logger)
	if err != nil {
		return err
	}

	gen := sitemap.NewGenerator(cfg.SiteURL, cfg.FrontendAppDir, cfg.MediaRoot, cfg.StaticRoot, st, &logger)
	worker := sitemap.NewWorker(gen, &logger)
	st.OnPostSaved(worker.PostSaved)

	srv, err := server.New(st, agent, auth.NewIssuer(cfg.SecretKey, auth.DefaultAccessTTL, auth.DefaultRefreshTTL), gen, server.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MediaRoot:          cfg.MediaRoot,
	}, &logger)
	if err != nil {
		return err
	}
	e := srv.Echo()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ServerAddr).Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("starting server")
		if err := e.Start(cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	// 启动时先生成一次
	worker.Submit()
	return g.Wait()
}

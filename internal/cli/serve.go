package cli

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"reviewhooks/internal"
	"reviewhooks/pkg/providers/github"
	"reviewhooks/pkg/providers/gitlab"
	"reviewhooks/pkg/review"
	"reviewhooks/pkg/webhook"
)

// buildHandler wires adapters, the review client and the dispatcher into a mux.
func buildHandler(ctx context.Context, cfg internal.Config) (http.Handler, error) {
	logger := internal.NewLogger("server")

	reviewer, err := review.NewClient(review.Config{
		APIKey:       cfg.Review.APIKey,
		Endpoint:     cfg.Review.Endpoint,
		Agent:        cfg.Review.Agent,
		FeedbackPath: cfg.Review.FeedbackPath,
		Timeout:      time.Duration(cfg.Review.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("review client: %w", err)
	}
	if cfg.Review.APIKey == "" {
		logger.Warn("CODEMATE_API_KEY is not set; every qualifying event will fail at review")
	}

	filter, err := internal.NewReviewFilter(cfg.Review.SkipWhen)
	if err != nil {
		return nil, err
	}

	opts := []webhook.Option{
		webhook.WithFilter(filter),
		webhook.WithMaxBody(cfg.Server.MaxBodyBytes),
		webhook.WithDebugEvents(cfg.Server.DebugEvents),
		webhook.WithLogger(internal.NewLogger("webhook")),
	}

	if cfg.Providers.GitHub.Enabled {
		adapter, err := github.NewAdapter(ctx, cfg.Providers.GitHub, internal.NewLogger("github"))
		if err != nil {
			return nil, fmt.Errorf("github adapter: %w", err)
		}
		verify := webhook.GitHubSignature(cfg.Providers.GitHub.Secret)
		opts = append(opts, webhook.WithRoute(webhook.Route{Adapter: adapter, Verify: &verify}))
		if cfg.Providers.GitHub.Token == "" {
			logger.Warn("GITHUB_TOKEN is not set; github reviews will fail")
		}
		logger.Info("github webhooks enabled")
	}

	if cfg.Providers.GitLab.Enabled {
		adapter, err := gitlab.NewAdapter(cfg.Providers.GitLab, internal.NewLogger("gitlab"))
		if err != nil {
			return nil, fmt.Errorf("gitlab adapter: %w", err)
		}
		route := webhook.Route{Adapter: adapter}
		if cfg.Providers.GitLab.Secret != "" {
			verify := webhook.GitLabToken(adapter)
			route.Verify = &verify
		}
		opts = append(opts, webhook.WithRoute(route))
		if cfg.Providers.GitLab.Token == "" {
			logger.Warn("GITLAB_TOKEN is not set; gitlab reviews will fail")
		}
		logger.Info("gitlab webhooks enabled")
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, webhook.NewDispatcher(reviewer, opts...))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Server.MetricsEnabled {
		mux.Handle(cfg.Server.MetricsPath, expvar.Handler())
	}
	return mux, nil
}

func serve(parent context.Context, cfg internal.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := internal.NewLogger("server")
	handler, err := buildHandler(ctx, cfg)
	if err != nil {
		return err
	}

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutMS) * time.Millisecond,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutMS) * time.Millisecond,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderMS) * time.Millisecond,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s (webhook path %s)", addr, cfg.Server.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown")
	}
	return nil
}

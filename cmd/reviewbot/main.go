// Command reviewbot runs the GitLab AI code review service. It wires the
// configuration, the GitLab gateway, the selected review provider, and the
// persistence layer into the CLI commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/akorchak/reviewbot/internal/adapter/cli"
	"github.com/akorchak/reviewbot/internal/adapter/git"
	"github.com/akorchak/reviewbot/internal/adapter/gitlab"
	"github.com/akorchak/reviewbot/internal/adapter/httpserver"
	"github.com/akorchak/reviewbot/internal/adapter/llm/anthropic"
	"github.com/akorchak/reviewbot/internal/adapter/llm/gemini"
	llmhttp "github.com/akorchak/reviewbot/internal/adapter/llm/http"
	"github.com/akorchak/reviewbot/internal/adapter/llm/static"
	"github.com/akorchak/reviewbot/internal/adapter/observability"
	"github.com/akorchak/reviewbot/internal/adapter/output/markdown"
	"github.com/akorchak/reviewbot/internal/adapter/store/sqlite"
	"github.com/akorchak/reviewbot/internal/config"
	"github.com/akorchak/reviewbot/internal/determinism"
	"github.com/akorchak/reviewbot/internal/redaction"
	"github.com/akorchak/reviewbot/internal/usecase/review"
	"github.com/akorchak/reviewbot/internal/version"
)

// Compile-time checks that the adapters satisfy the use case ports.
var (
	_ review.Oracle        = (*gemini.Provider)(nil)
	_ review.Oracle        = (*anthropic.Provider)(nil)
	_ review.Oracle        = (*static.Provider)(nil)
	_ review.Gateway       = (*gitlab.Client)(nil)
	_ review.Recorder      = (*sqlite.Store)(nil)
	_ review.DiffSource    = (*git.Engine)(nil)
	_ cli.HistoryReader    = (*sqlite.Store)(nil)
	_ cli.LocalReviewer    = (*review.LocalRunner)(nil)
	_ httpserver.Processor = (*review.Controller)(nil)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return
		}
		if errors.Is(err, cli.ErrShouldReview) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "reviewbot: %s\n", llmhttp.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "reviewbot",
		EnvPrefix:   "REVIEWBOT",
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.BuildLogger(cfg.Observability.Logging)
	metrics := observability.BuildMetrics(cfg.Observability.Metrics)
	reviewLogger := observability.NewReviewLogger(logger)

	var redactor *redaction.Engine
	if cfg.Redaction.Enabled {
		redactor = redaction.NewEngine()
	}

	var history *sqlite.Store
	if cfg.Store.Enabled {
		path := cfg.Store.Path
		if path == "" {
			path = "reviewbot.db"
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create store directory: %w", err)
			}
		}
		history, err = sqlite.NewStore(path)
		if err != nil {
			// The store records history only; a broken database should not
			// keep reviews from running.
			logger.LogWarning(ctx, "review history store unavailable", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			history = nil
		} else {
			defer history.Close()
		}
	}

	deps := cli.Dependencies{
		Args: cli.Arguments{
			OutWriter: os.Stdout,
			ErrWriter: os.Stderr,
		},
		DefaultOutput: cfg.Output.Directory,
		DefaultRepo:   repositoryName(cfg),
		DefaultBranch: cfg.Review.DefaultBranch,
		Version:       version.Value(),
	}
	if history != nil {
		deps.History = history
	}

	oracle, oracleErr := buildOracle(cfg)
	if oracleErr == nil {
		runner := review.NewLocalRunner(git.NewEngine(repositoryDir(cfg)), oracle, markdown.NewWriter(reportTimestamp))
		if redactor != nil {
			runner.SetRedactor(redactor)
		}
		runner.SetLogger(reviewLogger)
		runner.SetSeedFunc(determinism.GenerateSeed)
		deps.LocalReviewer = runner
	}

	if serverErr := validateServerConfig(cfg); serverErr == nil && oracleErr == nil {
		controller := review.NewController(review.NewCacheStore(), gitlab.NewClient(cfg.GitLab.BaseURL, cfg.GitLab.Token), oracle)
		if redactor != nil {
			controller.SetRedactor(redactor)
		}
		controller.SetLogger(reviewLogger)
		controller.SetSeedFunc(determinism.GenerateSeed)
		if history != nil {
			controller.SetRecorder(history)
		}
		if cfg.Review.DefaultBranch != "" {
			controller.SetDefaultBranch(cfg.Review.DefaultBranch)
		}
		if cfg.GitLab.NoteScanDepth > 0 {
			controller.SetNoteScanDepth(cfg.GitLab.NoteScanDepth)
		}

		webhookServer := httpserver.NewServer(controller, cfg.Server.WebhookSecret)
		webhookServer.SetLogger(logger)
		if metrics != nil {
			webhookServer.SetMetrics(metrics)
		}
		webhookServer.SetTaskTimeout(cfg.Server.ParsedTaskTimeout())
		webhookServer.SetVersion(version.Value())

		deps.Server = &httpRunner{
			addr:   cfg.Server.Addr(),
			server: webhookServer,
			logger: logger,
		}
	}

	root := cli.NewRootCommand(deps)
	return root.ExecuteContext(ctx)
}

// buildOracle selects and constructs the configured review provider.
func buildOracle(cfg config.Config) (review.Oracle, error) {
	name, providerCfg, err := cfg.ActiveProvider()
	if err != nil {
		return nil, err
	}
	if !providerCfg.Enabled {
		return nil, fmt.Errorf("providers.%s is disabled", name)
	}

	switch name {
	case "gemini":
		client := gemini.NewHTTPClient(providerCfg.APIKey, providerCfg, cfg.HTTP)
		return gemini.NewProvider(providerCfg.Model, client), nil
	case "anthropic":
		client := anthropic.NewHTTPClient(providerCfg.APIKey, providerCfg, cfg.HTTP)
		return anthropic.NewProvider(providerCfg.Model, client), nil
	case "static":
		return static.NewApprovingProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func validateServerConfig(cfg config.Config) error {
	if cfg.GitLab.BaseURL == "" {
		return fmt.Errorf("gitlab.baseURL is required")
	}
	if cfg.GitLab.Token == "" {
		return fmt.Errorf("gitlab.token is required")
	}
	return nil
}

func repositoryDir(cfg config.Config) string {
	if cfg.Git.RepositoryDir != "" {
		return cfg.Git.RepositoryDir
	}
	return "."
}

// repositoryName labels local review reports, defaulting to the directory
// name of the reviewed repository.
func repositoryName(cfg config.Config) string {
	dir := repositoryDir(cfg)
	if dir == "." {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	if name := filepath.Base(dir); name != "." && name != string(filepath.Separator) {
		return name
	}
	return "repository"
}

func reportTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15-04-05Z")
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reviewbot"))
	}
	paths = append(paths, "/etc/reviewbot")
	return paths
}

// httpRunner serves the webhook handler until the context is cancelled, then
// drains in-flight review tasks before returning.
type httpRunner struct {
	addr   string
	server *httpserver.Server
	logger llmhttp.Logger
}

func (r *httpRunner) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              r.addr,
		Handler:           r.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.LogInfo(ctx, "webhook server listening", map[string]interface{}{
			"addr":    r.addr,
			"version": version.Value(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	r.server.Wait()
	return <-errCh
}

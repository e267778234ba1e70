package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/borough-labs/concierge/internal/bus"
	"github.com/borough-labs/concierge/internal/config"
	"github.com/borough-labs/concierge/internal/eventstore"
	"github.com/borough-labs/concierge/internal/httpapi"
	"github.com/borough-labs/concierge/internal/llm"
	"github.com/borough-labs/concierge/internal/pipeline"
	"github.com/borough-labs/concierge/internal/stt"
	"github.com/borough-labs/concierge/internal/tts"
	openai "github.com/sashabaranov/go-openai"
)

type Runtime struct {
	cfg            config.Config
	logger         *slog.Logger
	httpServer     *http.Server
	telemetryClose func(context.Context) error
	ready          atomic.Bool
	wg             sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.telemetryClose = shutdownTelemetry

	events, err := eventstore.Open(ctx, r.cfg.EventStore, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer events.Close()

	var busClient *bus.Client
	if r.cfg.Bus.Enabled {
		busClient, err = bus.Connect(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
		defer busClient.Close()
	}
	announcer := bus.NewAnnouncer(busClient, r.logger)

	client := newOpenAIClient(r.cfg.OpenAI)
	pipe := pipeline.New(
		r.cfg.OpenAI,
		stt.NewOpenAITranscriber(client),
		llm.NewOpenAIGenerator(client),
		tts.NewOpenAISynthesizer(client),
		events,
		announcer,
		r.logger,
	)

	router := httpapi.NewRouter(httpapi.NewVoiceHandler(pipe), metricsHandler, r.ready.Load, r.logger)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.telemetryClose != nil {
		if err := r.telemetryClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

// newOpenAIClient builds the shared upstream client. The base URL override
// exists for tests and proxies; the credential is passed through as-is and
// its absence is caught by the request gate, not here.
func newOpenAIClient(cfg config.OpenAIConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

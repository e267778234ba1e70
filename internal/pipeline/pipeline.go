package pipeline

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"github.com/borough-labs/concierge/internal/bus"
	"github.com/borough-labs/concierge/internal/config"
	"github.com/borough-labs/concierge/internal/eventstore"
	"github.com/borough-labs/concierge/internal/llm"
	"github.com/borough-labs/concierge/internal/stt"
	"github.com/borough-labs/concierge/internal/tts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// State names the position of an interaction in the pipeline. Transitions
// are strictly forward; Failed is terminal and reachable from any
// non-terminal state.
type State string

const (
	StateValidating   State = "validating"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateSynthesizing State = "synthesizing"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

// Request is the caller's input: base64 audio plus an optional media type.
type Request struct {
	Audio    string
	MIMEType string
}

// Result carries all three outputs. It is produced whole or not at all.
type Result struct {
	Transcript string
	Reply      string
	AudioB64   string
}

// Pipeline runs one interaction through transcription, reply generation and
// speech synthesis. Each call is independent; the only shared state is the
// read-only configuration.
type Pipeline struct {
	cfg          config.OpenAIConfig
	transcriber  stt.Transcriber
	generator    llm.Generator
	synthesizer  tts.Synthesizer
	events       *eventstore.Store
	announcer    *bus.Announcer
	logger       *slog.Logger
	tracer       trace.Tracer
	interactions metric.Int64Counter
	latency      metric.Float64Histogram
}

func New(
	cfg config.OpenAIConfig,
	transcriber stt.Transcriber,
	generator llm.Generator,
	synthesizer tts.Synthesizer,
	events *eventstore.Store,
	announcer *bus.Announcer,
	logger *slog.Logger,
) *Pipeline {
	meter := otel.Meter("concierge/pipeline")
	interactions, _ := meter.Int64Counter("concierge.pipeline.interactions",
		metric.WithDescription("Interactions processed by outcome"))
	latency, _ := meter.Float64Histogram("concierge.pipeline.duration_seconds",
		metric.WithDescription("End to end interaction latency"))

	return &Pipeline{
		cfg:          cfg,
		transcriber:  transcriber,
		generator:    generator,
		synthesizer:  synthesizer,
		events:       events,
		announcer:    announcer,
		logger:       logger.With(slog.String("component", "pipeline")),
		tracer:       otel.Tracer("concierge/pipeline"),
		interactions: interactions,
		latency:      latency,
	}
}

// Run executes the three stages in order. The first failing stage aborts
// the interaction; no later stage is attempted and no partial result leaks
// to the caller.
func (p *Pipeline) Run(ctx context.Context, interactionID string, req Request) (Result, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("interaction.id", interactionID)))
	defer span.End()

	if p.events != nil {
		if err := p.events.BeginInteraction(ctx, interactionID); err != nil {
			p.logger.Warn("failed to record interaction", slog.String("error", err.Error()))
		}
	}

	p.transition(ctx, interactionID, StateValidating)
	audio, err := p.validate(req)
	if err != nil {
		return Result{}, p.fail(ctx, interactionID, StateValidating, "", err, start)
	}

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = stt.DefaultMIMEType
	}

	p.transition(ctx, interactionID, StateTranscribing)
	transcript, err := p.transcribe(ctx, audio, mimeType)
	if err != nil {
		return Result{}, p.fail(ctx, interactionID, StateTranscribing, StageTranscription, err, start)
	}

	p.transition(ctx, interactionID, StateGenerating)
	reply, err := p.generate(ctx, transcript)
	if err != nil {
		return Result{}, p.fail(ctx, interactionID, StateGenerating, StageGeneration, err, start)
	}

	p.transition(ctx, interactionID, StateSynthesizing)
	speech, err := p.synthesize(ctx, reply)
	if err != nil {
		return Result{}, p.fail(ctx, interactionID, StateSynthesizing, StageSynthesis, err, start)
	}

	p.transition(ctx, interactionID, StateSucceeded)
	p.interactions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "succeeded")))
	p.latency.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("outcome", "succeeded")))
	p.announcer.Completed(interactionID, transcript, reply)
	p.logger.Info("interaction completed",
		slog.String("interaction_id", interactionID),
		slog.Duration("latency", time.Since(start)))

	return Result{
		Transcript: transcript,
		Reply:      reply,
		AudioB64:   base64.StdEncoding.EncodeToString(speech),
	}, nil
}

// validate is the request gate beyond the HTTP method check: the audio
// field must be present and decodable, and the credential must be
// configured. Checked per invocation, before any outbound call.
func (p *Pipeline) validate(req Request) ([]byte, error) {
	if strings.TrimSpace(req.Audio) == "" {
		return nil, ErrNoAudio
	}
	if p.cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return nil, ErrInvalidAudio
	}
	return audio, nil
}

func (p *Pipeline) transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.transcribe")
	defer span.End()
	text, err := p.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		span.RecordError(err)
		return "", &UpstreamError{Stage: StageTranscription, Err: err}
	}
	return text, nil
}

func (p *Pipeline) generate(ctx context.Context, transcript string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.generate")
	defer span.End()
	reply, err := p.generator.Generate(ctx, transcript)
	if err != nil {
		span.RecordError(err)
		return "", &UpstreamError{Stage: StageGeneration, Err: err}
	}
	return reply, nil
}

func (p *Pipeline) synthesize(ctx context.Context, reply string) ([]byte, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.synthesize")
	defer span.End()
	speech, err := p.synthesizer.Synthesize(ctx, reply)
	if err != nil {
		span.RecordError(err)
		return nil, &UpstreamError{Stage: StageSynthesis, Err: err}
	}
	return speech, nil
}

func (p *Pipeline) transition(ctx context.Context, interactionID string, state State) {
	if p.events == nil {
		return
	}
	err := p.events.AppendEvent(ctx, eventstore.Event{
		InteractionID: interactionID,
		Type:          "state",
		Detail:        string(state),
	})
	if err != nil {
		p.logger.Warn("failed to record state transition", slog.String("error", err.Error()))
	}
}

func (p *Pipeline) fail(ctx context.Context, interactionID string, from State, stage string, err error, start time.Time) error {
	if p.events != nil {
		evErr := p.events.AppendEvent(ctx, eventstore.Event{
			InteractionID: interactionID,
			Stage:         stage,
			Type:          "failed",
			Detail:        err.Error(),
		})
		if evErr != nil {
			p.logger.Warn("failed to record failure event", slog.String("error", evErr.Error()))
		}
	}
	p.interactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", "failed"),
		attribute.String("state", string(from))))
	p.latency.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("outcome", "failed")))
	p.announcer.Failed(interactionID, stage, err.Error())
	p.logger.Error("interaction failed",
		slog.String("interaction_id", interactionID),
		slog.String("state", string(from)),
		slog.String("error", err.Error()))
	return err
}

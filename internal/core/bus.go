package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventBus publishes the optional live case-event stream over NATS: one
// message per notable finding plus a run-completed envelope. The bus is an
// observer only — its absence or failure never changes pipeline results.
type EventBus struct {
	nc     *nats.Conn
	ns     *server.Server
	logger zerolog.Logger
}

// RunEnvelope is the run-completed message published to triage.runs.
type RunEnvelope struct {
	RunID       string    `json:"run_id"`
	Domain      Domain    `json:"domain"`
	CaseNumber  string    `json:"case_number"`
	Findings    int       `json:"findings"`
	Errors      int       `json:"errors"`
	FinalScore  float64   `json:"final_score"`
	CSVPath     string    `json:"csv_path"`
	ZipPath     string    `json:"zip_path"`
	Digest      string    `json:"digest"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewEventBus connects to NATS, starting an embedded server first when
// configured. Returns nil (no bus) when the stream is disabled.
func NewEventBus(cfg BusConfig, logger zerolog.Logger) (*EventBus, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	bus := &EventBus{
		logger: logger.With().Str("component", "event_bus").Logger(),
	}

	url := cfg.URL
	if cfg.Embedded {
		ns, err := server.NewServer(&server.Options{
			Host:   "127.0.0.1",
			Port:   cfg.Port,
			NoLog:  true,
			NoSigs: true,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedded NATS server: %w", err)
		}
		ns.Start()
		if !ns.ReadyForConnections(10 * time.Second) {
			return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
		}
		bus.ns = ns
		url = fmt.Sprintf("nats://127.0.0.1:%d", cfg.Port)
		bus.logger.Info().Int("port", cfg.Port).Msg("embedded NATS server started")
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				bus.logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
	)
	if err != nil {
		if bus.ns != nil {
			bus.ns.Shutdown()
		}
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	bus.nc = nc
	return bus, nil
}

// PublishFinding publishes one finding to triage.findings.<domain>. A nil bus
// is a no-op.
func (b *EventBus) PublishFinding(f *Finding) {
	if b == nil || b.nc == nil {
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		b.logger.Error().Err(err).Msg("marshaling finding event")
		return
	}
	subject := "triage.findings." + f.Domain.String()
	if err := b.nc.Publish(subject, data); err != nil {
		b.logger.Warn().Err(err).Str("subject", subject).Msg("publishing finding event")
	}
}

// PublishRun publishes the run-completed envelope to triage.runs.
func (b *EventBus) PublishRun(env *RunEnvelope) {
	if b == nil || b.nc == nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		b.logger.Error().Err(err).Msg("marshaling run envelope")
		return
	}
	if err := b.nc.Publish("triage.runs", data); err != nil {
		b.logger.Warn().Err(err).Msg("publishing run envelope")
	}
}

// Close drains the connection and stops the embedded server if one runs.
func (b *EventBus) Close() {
	if b == nil {
		return
	}
	if b.nc != nil {
		b.nc.Flush()
		b.nc.Close()
	}
	if b.ns != nil {
		b.ns.Shutdown()
	}
}

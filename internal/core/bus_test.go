package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventBusDisabled(t *testing.T) {
	bus, err := NewEventBus(BusConfig{Enabled: false}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, bus)
}

func TestNilBusIsNoOp(t *testing.T) {
	var bus *EventBus
	// None of these may panic on the nil receiver.
	bus.PublishFinding(NewFinding(DomainDNS, "example.com", 0, []string{"Normal"}))
	bus.PublishRun(&RunEnvelope{RunID: "r1"})
	bus.Close()
}

func TestEmbeddedBusPublishes(t *testing.T) {
	cfg := BusConfig{Enabled: true, Embedded: true, Port: 42224}
	bus, err := NewEventBus(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, bus)
	defer bus.Close()

	nc, err := nats.Connect("nats://127.0.0.1:42224")
	require.NoError(t, err)
	defer nc.Close()

	findings := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("triage.findings.dns", findings)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	runs := make(chan *nats.Msg, 1)
	runSub, err := nc.ChanSubscribe("triage.runs", runs)
	require.NoError(t, err)
	defer runSub.Unsubscribe()
	require.NoError(t, nc.Flush())

	bus.PublishFinding(NewFinding(DomainDNS, "darkwebsite.onion", ScoreHigh, []string{"Suspicious TLD"}))
	bus.PublishRun(&RunEnvelope{RunID: "r1", Domain: DomainDNS, Findings: 1})

	select {
	case msg := <-findings:
		var f Finding
		require.NoError(t, json.Unmarshal(msg.Data, &f))
		assert.Equal(t, "darkwebsite.onion", f.Subject)
		assert.Equal(t, RiskHigh, f.Risk)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for finding event")
	}

	select {
	case msg := <-runs:
		var env RunEnvelope
		require.NoError(t, json.Unmarshal(msg.Data, &env))
		assert.Equal(t, "r1", env.RunID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for run envelope")
	}
}

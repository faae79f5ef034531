package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DerwenAI/dylifo/internal/config"
	"github.com/DerwenAI/dylifo/internal/queue"
	"github.com/DerwenAI/dylifo/pkg/ai"
	"github.com/DerwenAI/dylifo/pkg/ai/aitest"
	"github.com/DerwenAI/dylifo/pkg/pipeline"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

type fakeAck struct {
	mu    sync.Mutex
	acked int
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple bool, requeue bool) error { return nil }

func (a *fakeAck) Reject(tag uint64, requeue bool) error { return nil }

const body = `{"id": "job-1", "document": {
	"RESOLVED_ENTITY": {"ENTITY_ID": 1, "ENTITY_NAME": "Bob Jones"},
	"RELATED_ENTITIES": [
		{"ENTITY_ID": 2, "ENTITY_NAME": "Mary Smith", "MATCH_KEY": "+ADDRESS",
		 "RECORD_SUMMARY": [{"DATA_SOURCE": "CUSTOMERS", "RECORD_COUNT": 1}]}
	]
}}`

func TestConsume(t *testing.T) {
	cfg := config.Default()
	cfg.Local.Model = "llama3.2"
	cfg.MaskPII = false

	client := aitest.New(
		aitest.Reply{Summary: "**Bob Jones** and **Mary Smith** have an address in common from the CUSTOMERS dataset."},
		aitest.Reply{Err: &ai.BackendError{Backend: "ollama", Kind: ai.KindAuth, Err: errors.New("denied")}},
	)
	p := pipeline.New(&cfg, client)
	ch := &fakeChannel{}
	ack := &fakeAck{}

	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Acknowledger: ack, Body: []byte(body)}
	msgs <- amqp.Delivery{Acknowledger: ack, Body: []byte(body)}
	close(msgs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	consume(ctx, p, ch, msgs)

	require.Equal(t, []string{queue.NarrativeQueue, queue.SummaryQueue + "_dlq"}, ch.keys)
	assert.Equal(t, 2, ack.acked)
	assert.Equal(t, 0, client.GetMetrics().Requests)
}

func TestClock(t *testing.T) {
	assert.Equal(t, "01:02:03", clock(time.Hour+2*time.Minute+3*time.Second))
}

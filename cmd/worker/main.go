package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DerwenAI/dylifo/internal/backend"
	"github.com/DerwenAI/dylifo/internal/config"
	"github.com/DerwenAI/dylifo/internal/queue"
	"github.com/DerwenAI/dylifo/internal/storage"
	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/logger"
	"github.com/DerwenAI/dylifo/pkg/logger/console"
	"github.com/DerwenAI/dylifo/pkg/pipeline"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool(config.DebugEnv, false)
	format, formatErr := console.ParseFormat(util.GetEnv("DYLIFO_LOG_FORMAT"))
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Format: format,
	})
	logger.Init(consoleLogger)
	if formatErr != nil {
		logger.Warn("Falling back to text logs", "err", formatErr)
	}

	docLoader, err := storage.NewLoader(ctx)
	if err != nil {
		logger.Fatal("Could not create document loader", "err", err)
	}

	p, err := pipeline.FromSettings(
		util.GetEnvString("DYLIFO_CONFIG", config.DefaultPath),
		backend.New,
		pipeline.WithLoader(docLoader),
	)
	if err != nil {
		logger.Fatal("Could not resolve configuration", "err", err)
	}

	if err := p.Client().LoadModel(ctx); err != nil {
		logger.Warn("Could not preload model", "model", p.Config().Model(), "err", err)
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.SummaryQueue, queue.NarrativeQueue}); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	// One document at a time.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.SummaryQueue,
		queue.SummaryQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.SummaryQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.SummaryQueue, "backend", p.Config().Backend(), "model", p.Config().Model())
	consume(ctx, p, ch, msgs)
	logger.Info("Shutdown signal received, exiting...")
}

// consume handles deliveries one after another until ctx ends or msgs is
// closed.
func consume(ctx context.Context, p *pipeline.Pipeline, ch queue.Publisher, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.SummaryQueue)
				return
			}
			handle(ctx, p, ch, msg)
		}
	}
}

func handle(ctx context.Context, p *pipeline.Pipeline, ch queue.Publisher, msg amqp.Delivery) {
	startTime := time.Now()
	logger.Info("Received message", "queue", queue.SummaryQueue)

	if err := queue.ProcessSummaryMessage(ctx, p, ch, msg.Body); err != nil {
		logger.Error("Error processing message", "queue", queue.SummaryQueue, "class", pipeline.Classify(err), "err", err)
		queue.HandleProcessingError(ctx, ch, msg, queue.SummaryQueue, err)
	} else {
		if err := msg.Ack(false); err != nil {
			logger.Error("Failed to ack message", "err", err)
		}
		logger.Info("Message processed successfully", "queue", queue.SummaryQueue)
	}

	metrics := p.Client().GetMetrics()
	logger.Info(
		"AI Metrics",
		"requests", metrics.Requests,
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
		"duration", clock(time.Duration(metrics.DurationMs)*time.Millisecond),
	)
	logger.Info("Processing time", "duration", clock(time.Since(startTime)))
	p.Client().ResetMetrics()
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

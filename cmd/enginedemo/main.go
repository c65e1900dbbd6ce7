// Command enginedemo wires the protocol engine to an in-memory FrameSink
// and drives a scripted session through it, while serving Prometheus
// metrics over HTTP. There is no real AMQP broker involved — the sink
// just logs what would have gone out on the wire — this binary exists to
// exercise the engine the way a real transport layer eventually would.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-amqp-engine/internal/config"
	"go-amqp-engine/internal/engine"
	"go-amqp-engine/internal/metrics"
)

// loggingSink prints every outbound method instead of writing it to a
// socket. A real transport would encode and send these over TCP.
type loggingSink struct {
	log *slog.Logger
}

func (s *loggingSink) Emit(channelID engine.ShortUInt, m engine.Method) error {
	s.log.Info("would emit frame", "component", "enginedemo", "channel", channelID, "method", m)
	return nil
}

// demoSubscriber prints each delivered message and acks it immediately.
type demoSubscriber struct {
	conn      *engine.Connection
	channelID engine.ShortUInt
	log       *slog.Logger
}

func (s *demoSubscriber) NewDeliveryComplete(d *engine.Delivery) {
	s.log.Info("delivery received", "component", "enginedemo",
		"delivery_tag", d.DeliveryTag, "routing_key", d.RoutingKey, "bytes", len(d.Data))
	if err := s.conn.BasicAck(s.channelID, d.DeliveryTag, false); err != nil {
		s.log.Error("ack failed", "component", "enginedemo", "error", err)
	}
}

func (s *demoSubscriber) Cancel() {
	s.log.Info("consumer cancelled", "component", "enginedemo")
}

func main() {
	cfg := config.Load()

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	// ── Metrics server ─────────────────────────────────────────────────────────

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         ":" + cfg.MetricsPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("metrics server started", "component", "enginedemo", "port", cfg.MetricsPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "component", "enginedemo", "error", err)
			os.Exit(1)
		}
	}()

	// ── Scripted session ───────────────────────────────────────────────────────

	sink := &loggingSink{log: log}
	conn := engine.NewConnection(sink)

	if err := runDemoSession(conn, cfg, log); err != nil {
		log.Error("demo session failed", "component", "enginedemo", "error", err)
	}

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	//
	// The engine holds no sockets and nothing to drain — only the metrics
	// HTTP server needs an orderly stop.

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutdown signal received", "component", "enginedemo")

	conn.Close()

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		log.Error("http shutdown error", "component", "enginedemo", "error", err)
	}

	log.Info("shutdown complete", "component", "enginedemo")
}

// runDemoSession drives one channel through open, declare, bind, consume,
// publish-with-confirm and get, timing each issuer call via the metrics
// package — the engine itself never touches metrics or a clock.
func runDemoSession(conn *engine.Connection, cfg *config.Config, log *slog.Logger) error {
	const channelID engine.ShortUInt = 1
	correlationID := uuid.New().String()
	log.Info("starting demo session", "component", "enginedemo", "correlation_id", correlationID)

	if err := timedIssue("channel.open", func() error {
		_, err := conn.ChannelOpen(channelID)
		return err
	}); err != nil {
		return err
	}
	if err := conn.ReceiveMethod(channelID, engine.ChannelOpenOk{}); err != nil {
		return err
	}

	if err := timedIssue("basic.qos", func() error {
		_, err := conn.BasicQos(channelID, 0, cfg.DefaultPrefetchCount, false)
		return err
	}); err != nil {
		return err
	}
	if err := conn.ReceiveMethod(channelID, engine.BasicQosOk{}); err != nil {
		return err
	}

	if err := timedIssue("exchange.declare", func() error {
		_, err := conn.ExchangeDeclare(channelID, "orders.topic", "topic", false, true, false, false, false, nil)
		return err
	}); err != nil {
		return err
	}
	if err := conn.ReceiveMethod(channelID, engine.ExchangeDeclareOk{}); err != nil {
		return err
	}

	if err := timedIssue("queue.declare", func() error {
		_, err := conn.QueueDeclare(channelID, "orders", false, true, false, false, false, nil)
		return err
	}); err != nil {
		return err
	}
	if err := conn.ReceiveMethod(channelID, engine.QueueDeclareOk{Queue: "orders"}); err != nil {
		return err
	}

	if err := timedIssue("queue.bind", func() error {
		_, err := conn.QueueBind(channelID, "orders", "orders.topic", "orders.created", false, nil)
		return err
	}); err != nil {
		return err
	}
	if err := conn.ReceiveMethod(channelID, engine.QueueBindOk{}); err != nil {
		return err
	}

	sub := &demoSubscriber{conn: conn, channelID: channelID, log: log}
	if err := timedIssue("basic.consume", func() error {
		_, err := conn.BasicConsume(channelID, "orders", "", false, false, false, false, nil, sub)
		return err
	}); err != nil {
		return err
	}
	if err := conn.ReceiveMethod(channelID, engine.BasicConsumeOk{ConsumerTag: "ctag-" + correlationID}); err != nil {
		return err
	}

	if err := timedIssue("confirm.select", func() error {
		_, err := conn.ConfirmSelect(channelID, false)
		return err
	}); err != nil {
		return err
	}
	if err := conn.ReceiveMethod(channelID, engine.ConfirmSelectOk{}); err != nil {
		return err
	}

	body := []byte(`{"order_id":"demo-1"}`)
	if err := timedIssue("basic.publish", func() error {
		_, err := conn.BasicPublish(channelID, "orders.topic", "orders.created", false, false)
		return err
	}); err != nil {
		return err
	}
	if err := conn.PublishContentHeader(channelID, uint64(len(body)), engine.Properties{
		ContentType:   "application/json",
		CorrelationID: correlationID,
	}); err != nil {
		return err
	}
	if err := conn.PublishContentBody(channelID, body, true); err != nil {
		return err
	}
	if err := conn.ReceiveMethod(channelID, engine.BasicAck{DeliveryTag: 1, Multiple: false}); err != nil {
		return err
	}
	metrics.ConfirmsTotal.WithLabelValues("ack").Inc()

	if err := timedIssue("basic.get", func() error {
		_, err := conn.BasicGet(channelID, "orders", true)
		return err
	}); err != nil {
		return err
	}
	if err := conn.ReceiveMethod(channelID, engine.BasicGetEmpty{}); err != nil {
		return err
	}

	log.Info("demo session complete", "component", "enginedemo")
	return nil
}

func timedIssue(method string, fn func() error) error {
	timer := time.Now()
	err := fn()
	metrics.MethodIssueDuration.WithLabelValues(method).Observe(time.Since(timer).Seconds())
	if err != nil {
		metrics.RepliesCompletedTotal.WithLabelValues(method, "error").Inc()
		return err
	}
	metrics.MethodsIssuedTotal.WithLabelValues(method).Inc()
	return nil
}

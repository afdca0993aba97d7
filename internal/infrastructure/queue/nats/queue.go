// Package nats carries page-crawled events from the crawler to the
// indexing worker. The payload is the page id; everything else lives
// in the page repository.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kkucdk/assistant-backend/internal/infrastructure/resilience"
)

type Queue struct {
	conn     *nats.Conn
	subject  string
	logger   *slog.Logger
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

func New(url, subject string, logger *slog.Logger) (*Queue, error) {
	return NewWithOptions(url, subject, logger, Options{})
}

func NewWithOptions(url, subject string, logger *slog.Logger, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("kkuc-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:    conn,
		subject: subject,
		logger:  logger,
		executor: resilience.NewExecutor("nats", resilience.Policy{
			Classify: classifyNATSError,
		}, logger),
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishPageCrawled(ctx context.Context, pageID string) error {
	return q.executor.Execute(ctx, "publish", func(context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(pageID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	})
}

// SubscribePageCrawled consumes events in a worker queue group and
// blocks until ctx is canceled, then drains the subscription.
func (q *Queue) SubscribePageCrawled(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, "indexers", func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		pageID := string(msg.Data)
		if err := handler(ctx, pageID); err != nil {
			q.logger.Error("page handler failed", "page_id", pageID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func classifyNATSError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retry: false, Record: false}
	}
	switch {
	case errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionDraining),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrNoServers):
		return resilience.ErrorClassification{Retry: true, Record: true}
	case errors.Is(err, nats.ErrBadSubject),
		errors.Is(err, nats.ErrMaxPayload):
		return resilience.ErrorClassification{Retry: false, Record: false}
	}
	return resilience.ErrorClassification{Retry: true, Record: true}
}

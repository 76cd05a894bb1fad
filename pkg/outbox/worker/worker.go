package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/pkg/mylogger"
	"github.com/brtkpo/RestaurantApp/pkg/outbox/domain"
)

type OutboxRepository interface {
	SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error
	GetUnpublishedEvents(ctx context.Context, tx pgx.Tx, batchSize int) ([]*domain.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, tx pgx.Tx, eventID int64) error
	MarkEventFailed(ctx context.Context, tx pgx.Tx, eventID int64, error string) error
}

// Publisher abstracts where committed events go: a Kafka producer for
// multi-process deployments, or the in-process notification hub.
type Publisher interface {
	ProduceMessage(ctx context.Context, topic string, message interface{}) error
}

// OutboxProcessor drains events that were committed together with their
// domain writes, so a notification is never pushed before it is durable.
type OutboxProcessor struct {
	pool      *pgxpool.Pool
	repo      OutboxRepository
	publisher Publisher
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
	tracer    trace.Tracer
}

func NewOutboxProcessor(
	pool *pgxpool.Pool,
	repo OutboxRepository,
	publisher Publisher,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		pool:      pool,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		batchSize: 50,
		interval:  500 * time.Millisecond,
		tracer:    otel.Tracer("outbox-worker"),
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	mylogger.Info(
		ctx,
		p.logger,
		"Starting outbox processor",
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(
				ctx,
				p.logger,
				"Outbox processor stopping",
			)

			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				mylogger.Error(
					ctx,
					p.logger,
					"Error processing outbox batch",
					zap.Error(err),
				)
			}
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.processBatch")
	defer span.End()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(
			ctx,
			p.logger,
			"outbox worker failed to begin transaction",
			zap.Error(err),
		)

		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(cleanupCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(
				cleanupCtx,
				p.logger,
				"Outbox worker failed to rollback transaction",
				zap.Error(err),
			)
		}
	}()

	events, err := p.repo.GetUnpublishedEvents(ctx, tx, p.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	mylogger.Debug(
		ctx,
		p.logger,
		"Processing outbox events",
		zap.Int("count", len(events)),
	)

	for _, event := range events {
		var payloadMap map[string]any
		if err := json.Unmarshal(event.Payload, &payloadMap); err != nil {
			mylogger.Error(
				ctx,
				p.logger,
				"outbox worker unmarshal event payload failed",
				zap.Int64("id", event.Id),
				zap.Error(err),
			)

			_ = p.repo.MarkEventFailed(ctx, tx, event.Id, err.Error())
			continue
		}

		payloadMap["event_id"] = event.Id

		err = p.publisher.ProduceMessage(
			ctx,
			event.Topic,
			payloadMap,
		)
		if err != nil {
			mylogger.Error(
				ctx,
				p.logger,
				"outbox worker produce message failed",
				zap.Int64("id", event.Id),
				zap.Error(err),
			)
			if dbErr := p.repo.MarkEventFailed(ctx, tx, event.Id, err.Error()); dbErr != nil {
				mylogger.Error(
					ctx,
					p.logger,
					"outbox worker mark event failed failed",
					zap.Int64("id", event.Id),
					zap.Error(dbErr),
				)
			}
		} else {
			if dbErr := p.repo.MarkEventPublished(ctx, tx, event.Id); dbErr != nil {
				mylogger.Error(
					ctx,
					p.logger,
					"Outbox worker event publishing failed",
					zap.Int64("id", event.Id),
					zap.Error(dbErr),
				)

				return dbErr
			}

			mylogger.Debug(
				ctx,
				p.logger,
				"outbox worker event published successfully",
				zap.Int64("id", event.Id),
			)
		}
	}

	return tx.Commit(ctx)
}

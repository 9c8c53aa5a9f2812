package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"warbler/internal/model"
	"warbler/internal/repository"
)

// EventPersistWorker drains the message event queue into the message_events
// audit table.
type EventPersistWorker struct {
	conn      *amqp.Connection
	repo      *repository.MessageEventRepository
	queueName string
	log       zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEventPersistWorker(conn *amqp.Connection, repo *repository.MessageEventRepository, queueName string, log zerolog.Logger) *EventPersistWorker {
	return &EventPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		log:       log,
	}
}

func (w *EventPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume event queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var evt model.MessageEvent
				if err := json.Unmarshal(d.Body, &evt); err != nil {
					w.log.Error().Err(err).Msg("decode message event failed")
					_ = d.Nack(false, false)
					continue
				}

				if err := w.repo.Create(&evt); err != nil {
					w.log.Error().Err(err).Uint("message_id", evt.MessageID).Msg("persist message event failed")
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *EventPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Package kafka publica los movimientos confirmados en un tópico Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

var _ inventory.MovementPublisher = (*MovementPublisher)(nil)

// messageWriter subconjunto de *kafka.Writer que usa el publicador.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MovementEvent forma en el cable de un movimiento confirmado.
type MovementEvent struct {
	ID             string          `json:"id"`
	Type           string          `json:"movement_type"`
	ItemID         string          `json:"item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	FromLevel      string          `json:"from_level,omitempty"`
	FromLocationID string          `json:"from_location_id,omitempty"`
	ToLevel        string          `json:"to_level,omitempty"`
	ToLocationID   string          `json:"to_location_id,omitempty"`
	PerformedBy    string          `json:"performed_by,omitempty"`
	TaskID         string          `json:"task_id,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	OperationDate  time.Time       `json:"operation_date"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewMovementEvent convierte el registro a evento.
func NewMovementEvent(m *entity.MovementRecord) MovementEvent {
	return MovementEvent{
		ID:             m.ID,
		Type:           string(m.Type),
		ItemID:         m.ItemID,
		Quantity:       m.Quantity,
		FromLevel:      string(m.FromLevel),
		FromLocationID: m.FromLocationID,
		ToLevel:        string(m.ToLevel),
		ToLocationID:   m.ToLocationID,
		PerformedBy:    m.PerformedBy,
		TaskID:         m.TaskID,
		Metadata:       m.Metadata,
		OperationDate:  m.OperationDate,
		CreatedAt:      m.CreatedAt,
	}
}

// MovementPublisher escribe un mensaje por movimiento, con clave item_id para conservar el orden por ítem.
type MovementPublisher struct {
	writer messageWriter
}

// NewMovementPublisher writer con balanceo por hash de clave.
func NewMovementPublisher(brokers []string, topic string) *MovementPublisher {
	return newMovementPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              100,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	})
}

func newMovementPublisher(w messageWriter) *MovementPublisher {
	return &MovementPublisher{writer: w}
}

// PublishMovements publica el lote en una sola escritura.
func (p *MovementPublisher) PublishMovements(ctx context.Context, movements []*entity.MovementRecord) error {
	if len(movements) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(movements))
	for _, m := range movements {
		payload, err := json.Marshal(NewMovementEvent(m))
		if err != nil {
			return fmt.Errorf("encode movement %s: %w", m.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(m.ItemID),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "movement_type", Value: []byte(m.Type)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish movements: %w", err)
	}
	return nil
}

// Close vacía y cierra el writer.
func (p *MovementPublisher) Close() error {
	return p.writer.Close()
}

// Package outbox writes notification events in the same transaction as
// the mutation that caused them. Delivery happens asynchronously; a
// failed delivery can never roll back a mutation.
package outbox

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/notification/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event is what services hand to the publisher.
type Event struct {
	OrgID       snowflake.ID
	Type        string
	ActorID     snowflake.ID
	RecipientID *snowflake.ID
	Payload     map[string]any
}

type Publisher interface {
	// Publish appends the event to the outbox using the given handle,
	// which is expected to be the mutation's transaction.
	Publish(ctx context.Context, tx *gorm.DB, evt Event) error
}

type outboxPublisher struct {
	genID *snowflake.Node
}

func NewPublisher(genID *snowflake.Node) Publisher {
	return &outboxPublisher{genID: genID}
}

func (p *outboxPublisher) Publish(ctx context.Context, tx *gorm.DB, evt Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).Create(&domain.OutboxEvent{
		ID:          p.genID.Generate(),
		OrgID:       evt.OrgID,
		EventType:   evt.Type,
		ActorID:     evt.ActorID,
		RecipientID: evt.RecipientID,
		Payload:     datatypes.JSON(payload),
	}).Error
}

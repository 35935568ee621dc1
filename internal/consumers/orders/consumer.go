package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
	"github.com/angelmondragon/shopledger-backend/pkg/logger"
	"github.com/angelmondragon/shopledger-backend/pkg/outbox"
	"github.com/angelmondragon/shopledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/shopledger-backend/pkg/outbox/registry"
)

const consumerName = "order-settlement"

type settler interface {
	CalculateSettlementForOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderEarning, error)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// NewDecoders registers the order status payloads this consumer understands.
func NewDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decode := func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderStatusEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("decode order status event: %w", err)
		}
		return &event, nil
	}
	decoders.Register(enums.EventOrderDelivered, 1, decode)
	decoders.Register(enums.EventOrderPaid, 1, decode)
	return decoders
}

// Consumer credits delivered, paid orders to their shop balance. Either event
// may arrive first; the one that finds the order both delivered and paid does
// the work and the other is a no-op.
type Consumer struct {
	subscription receiver
	settler      settler
	manager      idempotencyChecker
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

func NewConsumer(subscription receiver, settler settler, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("orders subscription is required")
	}
	if settler == nil {
		return nil, errors.New("earnings service is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		settler:      settler,
		manager:      manager,
		decoders:     NewDecoders(),
		logg:         logg,
	}, nil
}

// Run receives messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process reports whether the message should be redelivered. Malformed
// messages are acked; they will never decode.
func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) bool {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "invalid order event envelope")
		return false
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil || (eventType != enums.EventOrderDelivered && eventType != enums.EventOrderPaid) {
		c.logg.Debug(logCtx, "event not handled by order settlement consumer")
		return false
	}

	rawID := strings.TrimSpace(envelope.EventID)
	if rawID == "" {
		rawID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		c.logg.Warn(logCtx, "invalid event id")
		return false
	}

	version := envelope.Version
	if version <= 0 {
		version = 1
	}
	decoded, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "undecodable order event")
		return false
	}
	event, ok := decoded.(*payloads.OrderStatusEvent)
	if !ok || event.OrderID == uuid.Nil {
		c.logg.Warn(logCtx, "order event missing order id")
		return false
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":   eventID,
		"event_type": eventType,
		"order_id":   event.OrderID,
	})

	already, err := c.manager.CheckAndMarkProcessed(logCtx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return false
	}

	earning, err := c.settler.CalculateSettlementForOrder(logCtx, event.OrderID)
	switch {
	case err == nil:
		c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
			"shop_id": earning.ShopID,
			"amount":  earning.SettlementAmount.StringFixed(2),
		}), "order earning recorded")
		return false
	case pkgerrors.IsCode(err, pkgerrors.CodeAlreadySettled),
		pkgerrors.IsCode(err, pkgerrors.CodePreconditionFailed),
		pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		c.logg.Info(c.logg.WithField(logCtx, "reason", err.Error()), "order not settled")
		return false
	default:
		c.logg.Error(logCtx, "order settlement failed", err)
		if delErr := c.manager.Delete(logCtx, consumerName, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to clear idempotency mark", delErr)
		}
		return true
	}
}

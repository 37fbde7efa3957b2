package consumer

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/samujjwal/gearlend/internal/models"
	"github.com/samujjwal/gearlend/internal/service"
)

// PaymentCaptured is the gateway webhook event relayed over the bus.
type PaymentCaptured struct {
	Event string `json:"event"` // "payment.captured"
	Data  struct {
		BookingID string `json:"booking_id"`
		RenterID  string `json:"renter_id"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// PaymentConsumer drives COMPLETE_PAYMENT from captured-payment events.
type PaymentConsumer struct {
	sm  service.BookingStateMachine
	log zerolog.Logger
}

func NewPaymentConsumer(sm service.BookingStateMachine, log zerolog.Logger) *PaymentConsumer {
	return &PaymentConsumer{sm: sm, log: log}
}

func (pc *PaymentConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			pc.handleMessage(ctx, msg)
		}
		pc.log.Info().Msg("payment consumer: channel closed, stopping")
	}()
}

func (pc *PaymentConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	if msg.RoutingKey != "payment.captured" {
		_ = msg.Ack(false)
		return
	}

	var event PaymentCaptured
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		pc.log.Error().Err(err).Msg("payment consumer: unmarshal")
		_ = msg.Nack(false, false)
		return
	}
	if event.Data.BookingID == "" || event.Data.RenterID == "" {
		pc.log.Warn().Msg("payment consumer: invalid payload")
		_ = msg.Ack(false)
		return
	}

	_, err := pc.sm.Transition(ctx, event.Data.BookingID, service.TransCompletePayment, event.Data.RenterID, models.RoleRenter)
	if err != nil {
		pc.log.Error().Err(err).
			Str("booking_id", event.Data.BookingID).
			Msg("payment consumer: complete payment")
		// A domain rejection will never succeed on retry; anything else is
		// mechanical (DB down, gateway timeout) and gets redelivered.
		if isDomainRejection(err) {
			_ = msg.Nack(false, false)
		} else {
			_ = msg.Nack(false, true)
		}
		return
	}

	_ = msg.Ack(false)
}

func isDomainRejection(err error) bool {
	return errors.Is(err, service.ErrBookingNotFound) ||
		errors.Is(err, service.ErrInvalidTransition) ||
		errors.Is(err, service.ErrNotAuthorized) ||
		errors.Is(err, service.ErrManualReviewRequired)
}

// Package events handles event emission for contractor lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/SGK112/remodely-importer/pkg/kafka"
	"github.com/SGK112/remodely-importer/pkg/models"
	"github.com/SGK112/remodely-importer/pkg/tracing"
)

// Emitter publishes contractor lifecycle events to Kafka
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitContractorCreated emits a contractor.created event
func (e *Emitter) EmitContractorCreated(ctx context.Context, contractor *models.Contractor) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitContractorCreated")
	defer span.End()

	if err := e.producer.PublishContractorEvent(ctx, e.buildEvent("contractor.created", contractor)); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit contractor.created event")
		return err
	}

	return nil
}

// EmitContractorUpdated emits a contractor.updated event
func (e *Emitter) EmitContractorUpdated(ctx context.Context, contractor *models.Contractor) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitContractorUpdated")
	defer span.End()

	if err := e.producer.PublishContractorEvent(ctx, e.buildEvent("contractor.updated", contractor)); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit contractor.updated event")
		return err
	}

	return nil
}

func (e *Emitter) buildEvent(eventType string, contractor *models.Contractor) *kafka.ContractorEvent {
	event := &kafka.ContractorEvent{
		EventType:    eventType,
		ContractorID: contractor.ID,
		BusinessName: contractor.BusinessName,
		City:         contractor.City,
		State:        contractor.State,
		Specialties:  contractor.GetSpecialties(),
		Categories:   contractor.GetCategories(),
		ScrapedFrom:  contractor.ScrapedFrom,
	}
	if contractor.LicenseNumber != nil {
		event.LicenseNumber = *contractor.LicenseNumber
	}
	return event
}

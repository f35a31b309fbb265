package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Stock movement events. SAP-relevant movements are picked up by the
	// document sync consumer downstream.
	EventMovementRecorded  = "spares.movement.recorded"
	EventMovementCompleted = "spares.movement.completed"

	// Request lifecycle events
	EventRequestCreated   = "spares.request.created"
	EventRequestApproved  = "spares.request.approved"
	EventRequestCancelled = "spares.request.cancelled"

	// Replenishment events
	EventReplenishmentGenerated = "spares.replenishment.generated"
)

// Exchange names
const (
	ExchangeSpareEvents = "spares.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// MovementRecordedEvent is published when a stock movement is written.
// SAPRelevant mirrors the movement-type table so the sync consumer can
// filter without re-deriving it.
type MovementRecordedEvent struct {
	MovementID      string `json:"movement_id"`
	MovementType    string `json:"movement_type"`
	Bucket          string `json:"bucket"`
	BucketOperation string `json:"bucket_operation"`
	SpareID         string `json:"spare_id"`
	ReferenceType   string `json:"reference_type"`
	ReferenceNo     string `json:"reference_no"`
	SourceType      string `json:"source_type,omitempty"`
	SourceID        string `json:"source_id,omitempty"`
	DestinationType string `json:"destination_type,omitempty"`
	DestinationID   string `json:"destination_id,omitempty"`
	TotalQty        int    `json:"total_qty"`
	SAPRelevant     bool   `json:"sap_relevant"`
	CreatedBy       string `json:"created_by"`
}

// MovementCompletedEvent is published when a movement reaches completed status
type MovementCompletedEvent struct {
	MovementID string `json:"movement_id"`
	VerifiedBy string `json:"verified_by"`
}

// RequestCreatedEvent is published when a spare request is created
type RequestCreatedEvent struct {
	RequestID   string `json:"request_id"`
	RequestType string `json:"request_type"`
	Reason      string `json:"reason"`
	ItemCount   int    `json:"item_count"`
	CreatedBy   string `json:"created_by"`
}

// RequestApprovedEvent is published when a spare request is approved
type RequestApprovedEvent struct {
	RequestID        string `json:"request_id"`
	RequestType      string `json:"request_type"`
	ItemsProcessed   int    `json:"items_processed"`
	TotalQtyApproved int    `json:"total_qty_approved"`
	ApprovedBy       string `json:"approved_by"`
}

// RequestCancelledEvent is published when a spare request is cancelled
type RequestCancelledEvent struct {
	RequestID   string `json:"request_id"`
	CancelledBy string `json:"cancelled_by"`
	Remarks     string `json:"remarks,omitempty"`
}

// ReplenishmentGeneratedEvent is published for each request the MSL scan creates
type ReplenishmentGeneratedEvent struct {
	RequestID    string `json:"request_id"`
	SpareID      string `json:"spare_id"`
	LocationID   string `json:"location_id"`
	PlantID      string `json:"plant_id"`
	RequestedQty int    `json:"requested_qty"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}

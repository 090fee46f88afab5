// Package shared contains common domain types, errors, events, and value
// objects that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the expedition subsystem; the Discord-facing layer subscribes
// to these to post channel updates.
const (
	// Lifecycle events
	EventExpeditionCreated  EventType = "expedition.created"
	EventExpeditionLocked   EventType = "expedition.locked"
	EventExpeditionDeparted EventType = "expedition.departed"
	EventExpeditionReturned EventType = "expedition.returned"

	// Membership events
	EventMemberJoined EventType = "expedition.member_joined"
	EventMemberLeft   EventType = "expedition.member_left"

	// Travel events
	EventDirectionSet EventType = "expedition.direction_set"
	EventDayRolled    EventType = "expedition.day_rolled"

	// Emergency return events
	EventEmergencyVoteToggled EventType = "expedition.emergency_vote_toggled"
	EventEmergencyQuorum      EventType = "expedition.emergency_quorum_reached"

	// Resource events
	EventResourceTransferred EventType = "resource.transferred"
	EventStockMerged         EventType = "resource.stock_merged"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Lifecycle Events
// ═══════════════════════════════════════════════════════════════════════════

// ExpeditionCreatedEvent is emitted when a new expedition is created.
type ExpeditionCreatedEvent struct {
	BaseEvent
	Name      string `json:"name"`
	TownID    string `json:"town_id"`
	Duration  int    `json:"duration_days"`
	CreatedBy string `json:"created_by"`
}

// Payload implements Event interface.
func (e ExpeditionCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":          e.Name,
		"town_id":       e.TownID,
		"duration_days": e.Duration,
		"created_by":    e.CreatedBy,
	}
}

// NewExpeditionCreatedEvent creates a new ExpeditionCreatedEvent.
func NewExpeditionCreatedEvent(expeditionID, name, townID string, duration int, createdBy string) ExpeditionCreatedEvent {
	return ExpeditionCreatedEvent{
		BaseEvent: NewBaseEvent(EventExpeditionCreated, expeditionID),
		Name:      name,
		TownID:    townID,
		Duration:  duration,
		CreatedBy: createdBy,
	}
}

// ExpeditionLockedEvent is emitted when an expedition is locked for departure.
type ExpeditionLockedEvent struct {
	BaseEvent
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
	Forced      bool   `json:"forced"`
}

// Payload implements Event interface.
func (e ExpeditionLockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":         e.Name,
		"member_count": e.MemberCount,
		"forced":       e.Forced,
	}
}

// NewExpeditionLockedEvent creates a new ExpeditionLockedEvent.
func NewExpeditionLockedEvent(expeditionID, name string, memberCount int, forced bool) ExpeditionLockedEvent {
	return ExpeditionLockedEvent{
		BaseEvent:   NewBaseEvent(EventExpeditionLocked, expeditionID),
		Name:        name,
		MemberCount: memberCount,
		Forced:      forced,
	}
}

// ExpeditionDepartedEvent is emitted when an expedition departs.
type ExpeditionDepartedEvent struct {
	BaseEvent
	Name     string    `json:"name"`
	ReturnAt time.Time `json:"return_at"`
}

// Payload implements Event interface.
func (e ExpeditionDepartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":      e.Name,
		"return_at": e.ReturnAt.Format(time.RFC3339),
	}
}

// NewExpeditionDepartedEvent creates a new ExpeditionDepartedEvent.
func NewExpeditionDepartedEvent(expeditionID, name string, returnAt time.Time) ExpeditionDepartedEvent {
	return ExpeditionDepartedEvent{
		BaseEvent: NewBaseEvent(EventExpeditionDeparted, expeditionID),
		Name:      name,
		ReturnAt:  returnAt,
	}
}

// ReturnReason describes why an expedition returned.
type ReturnReason string

const (
	// ReturnReasonExpired - the planned duration elapsed.
	ReturnReasonExpired ReturnReason = "expired"
	// ReturnReasonEmergency - a strict majority voted for early return.
	ReturnReasonEmergency ReturnReason = "emergency_vote"
	// ReturnReasonAdmin - an administrator forced the return.
	ReturnReasonAdmin ReturnReason = "admin_forced"
	// ReturnReasonAbandoned - the last member left during planning.
	ReturnReasonAbandoned ReturnReason = "abandoned"
)

// ExpeditionReturnedEvent is emitted when an expedition returns to town.
type ExpeditionReturnedEvent struct {
	BaseEvent
	Name   string       `json:"name"`
	TownID string       `json:"town_id"`
	Reason ReturnReason `json:"reason"`
}

// Payload implements Event interface.
func (e ExpeditionReturnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":    e.Name,
		"town_id": e.TownID,
		"reason":  string(e.Reason),
	}
}

// NewExpeditionReturnedEvent creates a new ExpeditionReturnedEvent.
func NewExpeditionReturnedEvent(expeditionID, name, townID string, reason ReturnReason) ExpeditionReturnedEvent {
	return ExpeditionReturnedEvent{
		BaseEvent: NewBaseEvent(EventExpeditionReturned, expeditionID),
		Name:      name,
		TownID:    townID,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Membership Events
// ═══════════════════════════════════════════════════════════════════════════

// MemberJoinedEvent is emitted when a character joins an expedition.
type MemberJoinedEvent struct {
	BaseEvent
	CharacterID string `json:"character_id"`
	ByAdmin     bool   `json:"by_admin"`
}

// Payload implements Event interface.
func (e MemberJoinedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"character_id": e.CharacterID,
		"by_admin":     e.ByAdmin,
	}
}

// NewMemberJoinedEvent creates a new MemberJoinedEvent.
func NewMemberJoinedEvent(expeditionID, characterID string, byAdmin bool) MemberJoinedEvent {
	return MemberJoinedEvent{
		BaseEvent:   NewBaseEvent(EventMemberJoined, expeditionID),
		CharacterID: characterID,
		ByAdmin:     byAdmin,
	}
}

// MemberLeftEvent is emitted when a character leaves an expedition.
type MemberLeftEvent struct {
	BaseEvent
	CharacterID string `json:"character_id"`
	ByAdmin     bool   `json:"by_admin"`
	Terminated  bool   `json:"terminated"` // true when the last member left and the expedition folded
}

// Payload implements Event interface.
func (e MemberLeftEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"character_id": e.CharacterID,
		"by_admin":     e.ByAdmin,
		"terminated":   e.Terminated,
	}
}

// NewMemberLeftEvent creates a new MemberLeftEvent.
func NewMemberLeftEvent(expeditionID, characterID string, byAdmin, terminated bool) MemberLeftEvent {
	return MemberLeftEvent{
		BaseEvent:   NewBaseEvent(EventMemberLeft, expeditionID),
		CharacterID: characterID,
		ByAdmin:     byAdmin,
		Terminated:  terminated,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Travel Events
// ═══════════════════════════════════════════════════════════════════════════

// DirectionSetEvent is emitted when a member chooses the day's direction.
type DirectionSetEvent struct {
	BaseEvent
	Direction   string `json:"direction"`
	CharacterID string `json:"character_id"`
}

// Payload implements Event interface.
func (e DirectionSetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"direction":    e.Direction,
		"character_id": e.CharacterID,
	}
}

// NewDirectionSetEvent creates a new DirectionSetEvent.
func NewDirectionSetEvent(expeditionID, direction, characterID string) DirectionSetEvent {
	return DirectionSetEvent{
		BaseEvent:   NewBaseEvent(EventDirectionSet, expeditionID),
		Direction:   direction,
		CharacterID: characterID,
	}
}

// DayRolledEvent is emitted when the daily tick appends the day's direction
// to the expedition path.
type DayRolledEvent struct {
	BaseEvent
	Direction  string `json:"direction"`
	PathLength int    `json:"path_length"`
}

// Payload implements Event interface.
func (e DayRolledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"direction":   e.Direction,
		"path_length": e.PathLength,
	}
}

// NewDayRolledEvent creates a new DayRolledEvent.
func NewDayRolledEvent(expeditionID, direction string, pathLength int) DayRolledEvent {
	return DayRolledEvent{
		BaseEvent:  NewBaseEvent(EventDayRolled, expeditionID),
		Direction:  direction,
		PathLength: pathLength,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Emergency Return Events
// ═══════════════════════════════════════════════════════════════════════════

// EmergencyVoteToggledEvent is emitted when a member toggles their vote.
type EmergencyVoteToggledEvent struct {
	BaseEvent
	CharacterID      string `json:"character_id"`
	Voted            bool   `json:"voted"`
	TotalVotes       int    `json:"total_votes"`
	MembersCount     int    `json:"members_count"`
	ThresholdReached bool   `json:"threshold_reached"`
}

// Payload implements Event interface.
func (e EmergencyVoteToggledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"character_id":      e.CharacterID,
		"voted":             e.Voted,
		"total_votes":       e.TotalVotes,
		"members_count":     e.MembersCount,
		"threshold_reached": e.ThresholdReached,
	}
}

// NewEmergencyVoteToggledEvent creates a new EmergencyVoteToggledEvent.
func NewEmergencyVoteToggledEvent(expeditionID, characterID string, voted bool, totalVotes, membersCount int, thresholdReached bool) EmergencyVoteToggledEvent {
	return EmergencyVoteToggledEvent{
		BaseEvent:        NewBaseEvent(EventEmergencyVoteToggled, expeditionID),
		CharacterID:      characterID,
		Voted:            voted,
		TotalVotes:       totalVotes,
		MembersCount:     membersCount,
		ThresholdReached: thresholdReached,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Resource Events
// ═══════════════════════════════════════════════════════════════════════════

// ResourceTransferredEvent is emitted for every town<->expedition transfer.
type ResourceTransferredEvent struct {
	BaseEvent
	ResourceType string `json:"resource_type"`
	Quantity     int    `json:"quantity"`
	Direction    string `json:"direction"` // "toExpedition" or "toTown"
}

// Payload implements Event interface.
func (e ResourceTransferredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"resource_type": e.ResourceType,
		"quantity":      e.Quantity,
		"direction":     e.Direction,
	}
}

// NewResourceTransferredEvent creates a new ResourceTransferredEvent.
func NewResourceTransferredEvent(expeditionID, resourceType string, quantity int, direction string) ResourceTransferredEvent {
	return ResourceTransferredEvent{
		BaseEvent:    NewBaseEvent(EventResourceTransferred, expeditionID),
		ResourceType: resourceType,
		Quantity:     quantity,
		Direction:    direction,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Publisher
// ═══════════════════════════════════════════════════════════════════════════

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	Publish(event Event) error
}

// EventHandler processes a published domain event.
type EventHandler interface {
	Handle(event Event) error
	InterestedIn() []EventType
}

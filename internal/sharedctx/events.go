package sharedctx

import (
	"errors"
	"fmt"
	"strings"
)

// Event names a state change delivered to listeners.
type Event string

// Events emitted by Context mutations. Each mutating operation emits exactly one.
const (
	EventMissionQueued             Event = "mission_queued"
	EventMissionDequeued           Event = "mission_dequeued"
	EventResourceRequested         Event = "resource_requested"
	EventResourceRequestFulfilled  Event = "resource_request_fulfilled"
	EventScoutingResultStored      Event = "scouting_result_stored"
	EventActiveMissionRegistered   Event = "active_mission_registered"
	EventActiveMissionUnregistered Event = "active_mission_unregistered"
	EventEconomicStateUpdated      Event = "economic_state_updated"
)

// Lifecycle events published by services through NotifyListeners.
const (
	EventMissionStarted               Event = "mission_started"
	EventMissionCompleted             Event = "mission_completed"
	EventMissionFailed                Event = "mission_failed"
	EventResourceAcquisitionStarted   Event = "resource_acquisition_started"
	EventResourceAcquisitionCompleted Event = "resource_acquisition_completed"
	EventResourceAcquisitionFailed    Event = "resource_acquisition_failed"
	EventScoutingStarted              Event = "scouting_started"
	EventScoutingCompleted            Event = "scouting_completed"
)

// Listener receives events synchronously, in registration order. Listener
// identity is the interface value, so implementations should be pointers.
// A listener may read the Context but must not mutate it from HandleEvent.
type Listener interface {
	HandleEvent(event Event, payload map[string]any) error
}

// ListenerError aggregates every listener failure from one delivery.
type ListenerError struct {
	Event Event
	Errs  []error
}

func (e *ListenerError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d listener(s) failed on %s: %s", len(e.Errs), e.Event, strings.Join(msgs, "; "))
}

func (e *ListenerError) Unwrap() error {
	return errors.Join(e.Errs...)
}

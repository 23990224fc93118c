package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types pushed over the wire.
const (
	EventQueueUpdate = "queue-update"
	EventYourTurn    = "your-turn"
)

// QueueTopic returns the topic for live updates of one doctor's queue on a day.
// Dates use the YYYY-MM-DD form.
func QueueTopic(doctorID, date string) string {
	return fmt.Sprintf("queue/%s/%s", doctorID, date)
}

// AppointmentTopic returns the topic for updates scoped to a single appointment.
func AppointmentTopic(appointmentID string) string {
	return fmt.Sprintf("appointment/%s", appointmentID)
}

// NewEvent builds an Event with the payload marshalled into Data. A payload
// that cannot be marshalled yields an event with empty Data.
func NewEvent(eventType, topic string, payload interface{}) Event {
	var data json.RawMessage
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			data = b
		}
	}
	return Event{
		Type:      eventType,
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

package outbox

// Event is the notification envelope written to the outbox table. The Kafka
// topic name equals EventType; consumers treat delivery as at-least-once.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics emitted by the scheduling engine.
const (
	TopicBooked      = "booking.appointment.booked.v1"
	TopicCancelled   = "booking.appointment.cancelled.v1"
	TopicRescheduled = "booking.appointment.rescheduled.v1"
	TopicCompleted   = "booking.appointment.completed.v1"
)

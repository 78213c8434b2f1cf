package outbox

// Event is the lifecycle event envelope written to the outbox table within
// the same transaction as the appointment mutation it describes. The relay
// publishes each event to the Kafka topic named by EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics emitted by the scheduling service. Downstream portal services
// (notifications, analytics) consume these; none are consumed here.
const (
	EventAppointmentRequested = "scheduling.appointment.requested.v1"
	EventAppointmentBooked    = "scheduling.appointment.booked.v1"
	EventAppointmentApproved  = "scheduling.appointment.approved.v1"
	EventAppointmentRejected  = "scheduling.appointment.rejected.v1"
	EventAppointmentCancelled = "scheduling.appointment.cancelled.v1"
	EventAppointmentExpired   = "scheduling.appointment.expired.v1"
)

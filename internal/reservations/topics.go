package reservations

// Semua transisi satu request lewat satu topic, partition key = request_id,
// supaya urutan approval per request terjaga di consumer.
const TopicReservationEvents = "reservation.events"

func PartitionKey(requestID string) []byte { return []byte(requestID) }

package redisx

import "time"

const (
	// Idempotency submit request: idem:request:submit:{external_id} -> request_id
	KeyIdemSubmit = "idem:request:submit:%s"

	// Cache status request: request_status:{request_id} -> JSON ringkas
	KeyRequestStatus = "request_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

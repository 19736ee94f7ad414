package domain

import "time"

// HealthStatus is the payload of GET /healthz.
type HealthStatus struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

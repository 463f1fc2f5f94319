package model

// DatabaseStats is the connection state reported by /health.
type DatabaseStats struct {
	Driver          string `json:"driver"`
	Connected       bool   `json:"connected"`
	OpenConnections int    `json:"openConnections"`
	InUse           int    `json:"inUse"`
	Idle            int    `json:"idle"`
	Reconnects      int64  `json:"reconnects"`
}

type HealthStatus struct {
	Status   string        `json:"status"`
	Env      string        `json:"env"`
	Uptime   string        `json:"uptime"`
	Database DatabaseStats `json:"database"`
}

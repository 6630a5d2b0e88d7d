package gateway

// request models (HTTP-layer only)

type VolumeCreateRequest struct {
	PoolID       string `json:"pool_id"`
	Name         string `json:"name"`
	SizeBytes    uint64 `json:"size_bytes"`
	Provisioning string `json:"provisioning"`
}

type FsCreateRequest struct {
	PoolID    string `json:"pool_id"`
	Name      string `json:"name"`
	SizeBytes uint64 `json:"size_bytes"`
}

type AccessGroupCreateRequest struct {
	Name          string `json:"name"`
	InitiatorID   string `json:"initiator_id"`
	InitiatorType int64  `json:"initiator_type"`
	SystemID      string `json:"system_id"`
}

// response models

// ListResponse wraps a list of tagged entity documents.
type ListResponse struct {
	Items []any `json:"items"`
	Total int   `json:"total"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	UptimeSeconds int    `json:"uptime_seconds"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

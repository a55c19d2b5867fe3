package models

// ComponentStatus is the health of one backing service.
type ComponentStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// StatusReport is "connected" only when every component answered.
type StatusReport struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components"`
}

const (
	StatusConnected = "connected"
	StatusError     = "error"
)

package systemlogs

// ListFilter narrows the system log listing.
type ListFilter struct {
	Level  string
	Action string
	Limit  int
}

// ClientEvent is an event reported by the browser, e.g. a failed export.
type ClientEvent struct {
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Level       string         `json:"level"`
	Metadata    map[string]any `json:"metadata"`
}

type resetRequest struct {
	Confirmation string `json:"confirmation"`
}

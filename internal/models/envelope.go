// internal/models/envelope.go
package models

// Outcome statuses used in listings and envelope details.
const (
	StatusSuccess     = "success"
	StatusEmpty       = "empty"
	StatusError       = "error"
	StatusUnsupported = "unsupported"
)

// Envelope is the response shape of one query.
type Envelope struct {
	RequestID          string           `json:"request_id,omitempty"`
	Message            string           `json:"message"`
	Query              string           `json:"query,omitempty"`
	CommandInterpreted *Command         `json:"command_interpreted,omitempty"`
	Data               map[string]any   `json:"data"`
	Errors             []OperationError `json:"errors,omitempty"`
	Details            *Details         `json:"details,omitempty"`
	AvailableServices  map[string]bool  `json:"available_services"`
}

// NewEnvelope returns an envelope with an empty data map.
func NewEnvelope() *Envelope {
	return &Envelope{
		Data:              map[string]any{},
		AvailableServices: map[string]bool{},
	}
}

// Details explains why data is empty or incomplete.
type Details struct {
	Status          string         `json:"status"`
	Reason          string         `json:"reason,omitempty"`
	PossibleReasons []string       `json:"possible_reasons,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
}

// AddReasons appends reasons not already present.
func (d *Details) AddReasons(reasons ...string) {
	for _, r := range reasons {
		dup := false
		for _, existing := range d.PossibleReasons {
			if existing == r {
				dup = true
				break
			}
		}
		if !dup {
			d.PossibleReasons = append(d.PossibleReasons, r)
		}
	}
}

// OperationError is one failed provider operation inside an otherwise
// successful dispatch.
type OperationError struct {
	Key       string    `json:"key"`
	Platform  string    `json:"platform"`
	Operation string    `json:"operation,omitempty"`
	Message   string    `json:"message"`
	Analysis  *Sections `json:"analysis,omitempty"`
}

// Sections is a model answer split into named bullet lists.
type Sections map[string][]string

// Get returns the named section, never nil.
func (s Sections) Get(name string) []string {
	if v, ok := s[name]; ok && v != nil {
		return v
	}
	return []string{}
}

// IsEmpty reports whether every section is blank.
func (s Sections) IsEmpty() bool {
	for _, v := range s {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

package rejected

import "time"

// Rejected is the dead letter document written for every record or request the sync could
// not process.
type Rejected struct {
	ProcessingContext ProcessingContext `json:"processingContext"`
	Sources           Sources           `json:"sources"`
	Reason            Reason            `json:"reason"`
}

type ProcessingContext struct {
	Component Component `json:"component"`
	Time      time.Time `json:"time"`
	Host      string    `json:"host"`
}

type Component struct {
	Version  string `json:"version"`
	Branch   string `json:"branch"`
	Revision string `json:"revision"`
}

type Sources struct {
	Provider string     `json:"provider"`
	Inputs   []KeyValue `json:"inputs"`
}

type KeyValue struct {
	Source string `json:"source"`
	Key    string `json:"key"`
	// Value is the raw record, base64 encoded by encoding/json.
	Value []byte `json:"value"`
}

type Reason struct {
	Category string `json:"category"`
	Error    string `json:"error"`
}

package backend

import (
	"encoding/json"
	"fmt"
)

// Finding is one compliance-gap record. Its shape belongs to the backend;
// the client only forwards it.
type Finding = json.RawMessage

// FormatRequest is the body of both format calls
type FormatRequest struct {
	Findings         []Finding `json:"findings"`
	OriginalFilename string    `json:"originalFilename"`
}

// Document is a formatted report returned by the backend
type Document struct {
	MediaType string
	Data      []byte

	// Filename is taken from Content-Disposition when the backend sends one
	Filename string
}

// HealthStatus is the body of the health endpoint
type HealthStatus struct {
	Status string `json:"status"`
}

// decodeFindings accepts a bare array or an object wrapping one under
// "findings" or "report". A report given as a plain string is one finding.
func decodeFindings(body []byte) ([]Finding, error) {
	var list []Finding
	if err := json.Unmarshal(body, &list); err == nil {
		return nonNil(list), nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("response is neither a JSON array nor an object: %w", err)
	}

	for _, key := range []string{"findings", "report"} {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err == nil {
			return nonNil(list), nil
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			if text == "" {
				return []Finding{}, nil
			}
			return []Finding{raw}, nil
		}
		return nil, fmt.Errorf("field %q is not a list of findings", key)
	}

	return nil, fmt.Errorf("response object has no findings or report field")
}

func nonNil(list []Finding) []Finding {
	if list == nil {
		return []Finding{}
	}
	return list
}

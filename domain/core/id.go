package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ExperimentID ID
	AnalysisID   ID
	MetricKey    ID
)

// String conversions for domain IDs
func (id ExperimentID) String() string { return ID(id).String() }
func (id AnalysisID) String() string   { return ID(id).String() }
func (k MetricKey) String() string     { return ID(k).String() }

// ParseExperimentID parses a string into ExperimentID
func ParseExperimentID(s string) (ExperimentID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("experiment ID cannot be empty")
	}
	return ExperimentID(s), nil
}

// ParseMetricKey parses a string into MetricKey
func ParseMetricKey(s string) (MetricKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("metric key cannot be empty")
	}
	return MetricKey(s), nil
}

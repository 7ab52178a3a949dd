package common

import (
	"github.com/google/uuid"
)

// NewCorrelationID generates the id attached to every log line of one session operation.
// Format: op_<uuid>
func NewCorrelationID() string {
	return "op_" + uuid.New().String()
}

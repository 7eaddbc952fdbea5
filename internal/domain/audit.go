package domain

import (
	"net"
	"time"
)

type Metadata map[string]any

// AuditEvent is a platform-level audit entry, separate from the per-record
// transition trail. Appended for every lifecycle mutation.
type AuditEvent struct {
	OccurredAt   time.Time
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
	RequestID    string
	IP           net.IP
	UserAgent    string
	Payload      Metadata
}

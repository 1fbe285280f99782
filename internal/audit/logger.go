package audit

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Event represents an audit log event.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`   // user id, key id or client id
	Project   string    `json:"project,omitempty"` // project the action applied to
	Target    string    `json:"target,omitempty"`  // target resource id
	Details   string    `json:"details,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// Audited actions.
const (
	ActionClientRegistered = "oauth.client_registered"
	ActionCodeIssued       = "oauth.code_issued"
	ActionCodeRedeemed     = "oauth.code_redeemed"
	ActionExchangeRejected = "oauth.exchange_rejected"
	ActionProjectSwitched  = "oauth.project_switched"
	ActionAPIKeyCreated    = "apikey.created"
	ActionAPIKeyRevoked    = "apikey.revoked"
	ActionLogin            = "session.login"
)

var (
	mu          sync.Mutex
	auditLogger = zerolog.New(os.Stdout)
)

// SetOutput redirects audit records, e.g. to a dedicated file.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	auditLogger = zerolog.New(w)
}

// Log records an audit event.
func Log(action, actor, project, target, details string, err error) {
	event := Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Actor:     actor,
		Project:   project,
		Target:    target,
		Details:   details,
		Success:   err == nil,
	}
	if err != nil {
		event.Error = err.Error()
	}

	entry, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		log.Error().Err(marshalErr).Msg("Failed to marshal audit event to JSON")
		return
	}

	mu.Lock()
	defer mu.Unlock()
	auditLogger.Log().RawJSON("audit_event", entry).Msg("")
}

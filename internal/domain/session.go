package domain

import (
	"fmt"
	"strings"
	"time"
)

type SessionID string
type MessageID string
type TurnID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        MessageID
	Role      Role
	Content   string
	Timestamp time.Time
	Sequence  int64
	// Backend and TokenCost are set on assistant messages only.
	Backend   BackendID
	TokenCost int64
}

// Session owns an append-only, strictly ordered message log. Messages are never
// reordered or mutated after being appended.
type Session struct {
	ID             SessionID
	Account        AccountID
	Title          string
	Messages       []Message
	CreatedAt      time.Time
	LastActivityAt time.Time
}

func (s Session) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(string(s.Account)) == "" {
		return fmt.Errorf("account is required")
	}

	return nil
}

func (s Session) NextSequence() int64 {
	if len(s.Messages) == 0 {
		return 1
	}
	return s.Messages[len(s.Messages)-1].Sequence + 1
}

// Append adds a message to the log, enforcing the monotonic sequence invariant.
func (s *Session) Append(message Message) error {
	if message.Sequence != s.NextSequence() {
		return fmt.Errorf("message sequence %d breaks order (expected %d)", message.Sequence, s.NextSequence())
	}

	s.Messages = append(s.Messages, message)
	s.LastActivityAt = message.Timestamp
	return nil
}

func (s Session) MessageCount() int {
	return len(s.Messages)
}

type TurnState string

const (
	TurnCreated          TurnState = "created"
	TurnDispatched       TurnState = "dispatched"
	TurnAwaitingResponse TurnState = "awaiting_response"
	TurnCompleted        TurnState = "completed"
	TurnFailed           TurnState = "failed"
)

type FailureReason string

const (
	FailureNone                FailureReason = ""
	FailureSafetyRejected      FailureReason = "safety_rejected"
	FailureInsufficientBalance FailureReason = "insufficient_balance"
	FailureBackendError        FailureReason = "backend_error"
	FailureBackendTimeout      FailureReason = "backend_timeout"
	FailureCancelled           FailureReason = "cancelled"
	FailureOverageExceeded     FailureReason = "overage_exceeded"
)

// Turn is one user message plus its resulting assistant message, or a failure.
type Turn struct {
	ID            TurnID
	Session       SessionID
	Account       AccountID
	UserMessage   MessageID
	ReplyMessage  MessageID
	Backend       BackendID
	State         TurnState
	FailureReason FailureReason
	StartedAt     time.Time
	EndedAt       time.Time
}

var turnTransitions = map[TurnState][]TurnState{
	TurnCreated:          {TurnDispatched, TurnFailed},
	TurnDispatched:       {TurnAwaitingResponse, TurnFailed},
	TurnAwaitingResponse: {TurnCompleted, TurnFailed},
}

// Transition moves the turn to next, rejecting anything the state machine does
// not allow. Completed and Failed are terminal.
func (t *Turn) Transition(next TurnState) error {
	for _, allowed := range turnTransitions[t.State] {
		if allowed == next {
			t.State = next
			return nil
		}
	}

	return fmt.Errorf("invalid turn transition %s -> %s", t.State, next)
}

func (t Turn) Terminal() bool {
	return t.State == TurnCompleted || t.State == TurnFailed
}

// SessionTitle derives a session title from the first user message, the way the
// dashboard labels conversations.
func SessionTitle(content string) string {
	const maxTitleLen = 48

	title := strings.TrimSpace(content)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	if len(title) > maxTitleLen {
		title = strings.TrimSpace(title[:maxTitleLen]) + "…"
	}
	if title == "" {
		title = "Untitled session"
	}

	return title
}

package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

const (
	sessionsPathKey  = "sessions.path"
	sessionsFileName = "sessions.toml"
)

// SessionRepository persists sessions with their full message logs. The log is
// stored in sequence order and decoded as-is; ordering is the session's own
// invariant, enforced on append, not here.
type SessionRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(cfg *viper.Viper) (*SessionRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	path := cfg.GetString(sessionsPathKey)
	if path == "" {
		path = filepath.Join(homeDir, stateConfigDir, sessionsFileName)
	}

	path, err = normalizeStatePath(path)
	if err != nil {
		return nil, err
	}

	return &SessionRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *SessionRepository) Save(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	encoded := toSessionSchema(session)
	updated := false
	for i := range file.Sessions {
		if file.Sessions[i].ID == encoded.ID {
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}

	return writeTOMLFile(r.path, file)
}

func (r *SessionRepository) GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Session{}, err
	}

	for _, entry := range file.Sessions {
		if entry.ID == string(id) {
			return fromSessionSchema(entry), nil
		}
	}

	return domain.Session{}, domain.ErrSessionNotFound
}

func (r *SessionRepository) ListByAccount(ctx context.Context, account domain.AccountID) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, len(file.Sessions))
	for _, entry := range file.Sessions {
		if entry.Account != string(account) {
			continue
		}
		sessions = append(sessions, fromSessionSchema(entry))
	}

	return sessions, nil
}

func (r *SessionRepository) readSchema() (sessionsFileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sessionsFileSchema{}, nil
		}
		return sessionsFileSchema{}, fmt.Errorf("read sessions file: %w", err)
	}

	var file sessionsFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return sessionsFileSchema{}, fmt.Errorf("decode sessions file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return sessionsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toSessionSchema(session domain.Session) sessionSchema {
	messages := make([]messageSchema, 0, len(session.Messages))
	for _, message := range session.Messages {
		messages = append(messages, messageSchema{
			ID:        string(message.ID),
			Role:      string(message.Role),
			Content:   message.Content,
			Timestamp: formatTime(message.Timestamp),
			Sequence:  message.Sequence,
			Backend:   string(message.Backend),
			TokenCost: message.TokenCost,
		})
	}

	return sessionSchema{
		ID:             string(session.ID),
		Account:        string(session.Account),
		Title:          session.Title,
		Messages:       messages,
		CreatedAt:      formatTime(session.CreatedAt),
		LastActivityAt: formatTime(session.LastActivityAt),
	}
}

func fromSessionSchema(schema sessionSchema) domain.Session {
	messages := make([]domain.Message, 0, len(schema.Messages))
	for _, message := range schema.Messages {
		messages = append(messages, domain.Message{
			ID:        domain.MessageID(message.ID),
			Role:      domain.Role(message.Role),
			Content:   message.Content,
			Timestamp: parseTime(message.Timestamp),
			Sequence:  message.Sequence,
			Backend:   domain.BackendID(message.Backend),
			TokenCost: message.TokenCost,
		})
	}

	return domain.Session{
		ID:             domain.SessionID(schema.ID),
		Account:        domain.AccountID(schema.Account),
		Title:          schema.Title,
		Messages:       messages,
		CreatedAt:      parseTime(schema.CreatedAt),
		LastActivityAt: parseTime(schema.LastActivityAt),
	}
}

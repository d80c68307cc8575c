package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

type SessionConfig struct {
	// Timeout bounds one backend call; an outstanding turn past it is
	// cancelled automatically and surfaces as a timeout failure.
	Timeout time.Duration
	// RetryAttempts is how many alternate backends are tried after the chosen
	// one fails with an unavailable/timeout error.
	RetryAttempts int
	// MemoryRetries bounds the best-effort persist of the memory block.
	MemoryRetries int
}

func (c SessionConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 60 * time.Second
	}
	return c.Timeout
}

func (c SessionConfig) retryAttempts() int {
	if c.RetryAttempts < 0 {
		return 0
	}
	if c.RetryAttempts == 0 {
		return 1
	}
	return c.RetryAttempts
}

func (c SessionConfig) memoryRetries() int {
	if c.MemoryRetries <= 0 {
		return 3
	}
	return c.MemoryRetries
}

// SessionService drives the per-turn lifecycle: safety pre-check, routing,
// ledger authorization, the out-of-line backend call, safety post-check,
// ledger commit, message append, and the best-effort memory write.
type SessionService struct {
	sessions  ports.SessionRepository
	accounts  ports.AccountRepository
	backends  ports.BackendRepository
	adapter   ports.BackendAdapter
	router    *RouterService
	ledger    *LedgerService
	safety    *SafetyService
	memory    *MemoryService
	estimator TokenEstimator
	clock     ports.Clock
	logger    *zap.Logger
	config    SessionConfig

	mu     sync.Mutex
	states map[domain.SessionID]*sessionState
}

// sessionState serializes turns per session. The slot holds one token for the
// whole turn, so concurrent sends on one session wait their turn instead of
// interleaving; cross-session traffic shares nothing.
type sessionState struct {
	slot chan struct{}

	mu        sync.Mutex
	turn      *domain.Turn
	cancel    context.CancelFunc
	cancelled bool
}

func NewSessionService(
	sessions ports.SessionRepository,
	accounts ports.AccountRepository,
	backends ports.BackendRepository,
	adapter ports.BackendAdapter,
	router *RouterService,
	ledger *LedgerService,
	safety *SafetyService,
	memory *MemoryService,
	clock ports.Clock,
	logger *zap.Logger,
	config SessionConfig,
) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionService{
		sessions:  sessions,
		accounts:  accounts,
		backends:  backends,
		adapter:   adapter,
		router:    router,
		ledger:    ledger,
		safety:    safety,
		memory:    memory,
		estimator: CharEstimator{},
		clock:     clock,
		logger:    logger,
		config:    config,
	}
}

// SetEstimator replaces the default character-ratio estimator.
func (s *SessionService) SetEstimator(estimator TokenEstimator) {
	if estimator != nil {
		s.estimator = estimator
	}
}

type invokeResult struct {
	response domain.BackendResponse
	err      error
}

// Send runs one full turn and returns its result. A failed turn leaves the
// session usable; the user message stays appended either way.
func (s *SessionService) Send(ctx context.Context, cmd SendMessageCommand) (TurnResult, error) {
	state := s.state(cmd.Session)
	select {
	case state.slot <- struct{}{}:
	default:
		// Another turn holds this session. Wait behind it unless the caller
		// gives up first.
		select {
		case state.slot <- struct{}{}:
		case <-ctx.Done():
			return TurnResult{}, fmt.Errorf("session %s: %w", cmd.Session, domain.ErrTurnInFlight)
		}
	}
	defer func() { <-state.slot }()

	account, err := s.accounts.GetByID(ctx, cmd.Account)
	if err != nil {
		return TurnResult{}, fmt.Errorf("get account by id: %w", err)
	}
	account.ApplyDefaults()

	session, err := s.loadOrCreateSession(ctx, cmd)
	if err != nil {
		return TurnResult{}, err
	}

	now := s.clock.Now()
	userMessage := domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		Role:      domain.RoleUser,
		Content:   cmd.Content,
		Timestamp: now,
		Sequence:  session.NextSequence(),
	}
	if err := session.Append(userMessage); err != nil {
		return TurnResult{}, fmt.Errorf("append user message: %w", err)
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return TurnResult{}, fmt.Errorf("save session: %w", err)
	}

	turn := domain.Turn{
		ID:          domain.TurnID(uuid.NewString()),
		Session:     session.ID,
		Account:     account.ID,
		UserMessage: userMessage.ID,
		State:       domain.TurnCreated,
		StartedAt:   now,
	}

	prompt := domain.PromptContext{Message: cmd.Content, Segments: cmd.Context}
	filtered, err := s.safety.PreCheck(account, prompt)
	if err != nil {
		return s.failTurn(&turn, domain.FailureSafetyRejected, err)
	}

	decision, err := s.router.Select(ctx, account, cmd.Content, cmd.TaskHint)
	if err != nil {
		return s.failTurn(&turn, domain.FailureBackendError, err)
	}

	estimate := s.estimator.Estimate(filtered)
	reservation, err := s.ledger.Authorize(ctx, account.ID, estimate)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return s.failTurn(&turn, domain.FailureInsufficientBalance, err)
		}
		return s.failTurn(&turn, domain.FailureBackendError, err)
	}

	if err := turn.Transition(domain.TurnDispatched); err != nil {
		return TurnResult{}, err
	}

	response, backendID, err := s.invokeWithFailover(ctx, state, &turn, decision, filtered)
	if err != nil {
		if releaseErr := s.ledger.Release(ctx, reservation.ID); releaseErr != nil {
			s.logger.Warn("release reservation after failed turn",
				zap.String("turn", string(turn.ID)),
				zap.Error(releaseErr))
		}
		switch {
		case errors.Is(err, domain.ErrTurnCancelled):
			return s.failTurn(&turn, domain.FailureCancelled, err)
		case errors.Is(err, domain.ErrBackendTimeout):
			return s.failTurn(&turn, domain.FailureBackendTimeout, err)
		case errors.Is(err, domain.ErrSafetyRejected):
			return s.failTurn(&turn, domain.FailureSafetyRejected, err)
		default:
			return s.failTurn(&turn, domain.FailureBackendError, err)
		}
	}

	redacted, err := s.safety.PostCheck(account, response.Content)
	if err != nil {
		if releaseErr := s.ledger.Release(ctx, reservation.ID); releaseErr != nil {
			s.logger.Warn("release reservation after post-check reject",
				zap.String("turn", string(turn.ID)),
				zap.Error(releaseErr))
		}
		return s.failTurn(&turn, domain.FailureSafetyRejected, err)
	}

	entry, err := s.ledger.Commit(ctx, reservation.ID, response.TokensUsed, turn.ID)
	if err != nil {
		if releaseErr := s.ledger.Release(ctx, reservation.ID); releaseErr != nil {
			s.logger.Warn("release reservation after failed commit",
				zap.String("turn", string(turn.ID)),
				zap.Error(releaseErr))
		}
		return s.failTurn(&turn, domain.FailureOverageExceeded, err)
	}
	charged := -entry.Delta

	// Reload so a memory write that raced this turn cannot be clobbered.
	session, err = s.sessions.GetByID(ctx, session.ID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("reload session: %w", err)
	}

	reply := domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		Role:      domain.RoleAssistant,
		Content:   redacted,
		Timestamp: s.clock.Now(),
		Sequence:  session.NextSequence(),
		Backend:   backendID,
		TokenCost: charged,
	}
	if err := session.Append(reply); err != nil {
		return TurnResult{}, fmt.Errorf("append assistant message: %w", err)
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return TurnResult{}, fmt.Errorf("save session: %w", err)
	}

	turn.ReplyMessage = reply.ID
	turn.Backend = backendID
	if err := turn.Transition(domain.TurnCompleted); err != nil {
		return TurnResult{}, err
	}
	turn.EndedAt = s.clock.Now()

	// Fire-and-forget: a memory failure is logged and retried, never allowed
	// to fail or delay the completed turn.
	block := ComposeFromTurn(session, turn, userMessage, reply, decision.Categories)
	go s.persistMemory(block)

	return TurnResult{Turn: turn, Reply: &reply, Charged: charged, Estimate: estimate}, nil
}

// Cancel aborts the session's in-flight turn, if any. The reservation release
// and state transition happen on the sending goroutine once the backend call
// unwinds; a response that arrives after cancellation is discarded.
func (s *SessionService) Cancel(session domain.SessionID) error {
	state := s.state(session)

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.turn == nil || state.turn.State != domain.TurnAwaitingResponse {
		return fmt.Errorf("session %s has no turn awaiting response", session)
	}

	state.cancelled = true
	state.cancel()

	return nil
}

// Transcript returns a read-only snapshot of the session's message log.
func (s *SessionService) Transcript(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}

	return session, nil
}

func (s *SessionService) ListSessions(ctx context.Context, account domain.AccountID) ([]domain.Session, error) {
	sessions, err := s.sessions.ListByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

// invokeWithFailover runs the backend call out-of-line and retries alternates
// from the routing decision on unavailable/timeout failures.
func (s *SessionService) invokeWithFailover(ctx context.Context, state *sessionState, turn *domain.Turn, decision Decision, prompt domain.PromptContext) (domain.BackendResponse, domain.BackendID, error) {
	candidates := append([]domain.BackendID{decision.Backend}, decision.Alternates...)
	maxAttempts := 1 + s.config.retryAttempts()
	if len(candidates) > maxAttempts {
		candidates = candidates[:maxAttempts]
	}

	if err := turn.Transition(domain.TurnAwaitingResponse); err != nil {
		return domain.BackendResponse{}, "", err
	}

	var lastErr error
	for attempt, backendID := range candidates {
		backend, err := s.backends.GetByID(ctx, backendID)
		if err != nil {
			lastErr = fmt.Errorf("get backend %s: %w", backendID, err)
			continue
		}

		response, err := s.invokeOnce(ctx, state, turn, backend, prompt)
		if err == nil {
			return response, backendID, nil
		}
		if errors.Is(err, domain.ErrTurnCancelled) {
			return domain.BackendResponse{}, "", err
		}
		if !errors.Is(err, domain.ErrBackendUnavailable) && !errors.Is(err, domain.ErrBackendTimeout) {
			return domain.BackendResponse{}, "", err
		}

		lastErr = err
		if attempt < len(candidates)-1 {
			s.logger.Info("retrying turn on alternate backend",
				zap.String("turn", string(turn.ID)),
				zap.String("failed_backend", string(backendID)),
				zap.String("next_backend", string(candidates[attempt+1])),
				zap.Error(err))
		}
	}

	return domain.BackendResponse{}, "", lastErr
}

func (s *SessionService) invokeOnce(ctx context.Context, state *sessionState, turn *domain.Turn, backend domain.Backend, prompt domain.PromptContext) (domain.BackendResponse, error) {
	invokeCtx, cancel := context.WithTimeout(ctx, s.config.timeout())
	defer cancel()

	state.mu.Lock()
	state.turn = turn
	state.cancel = cancel
	state.cancelled = false
	state.mu.Unlock()

	results := make(chan invokeResult, 1)
	go func() {
		response, err := s.adapter.Invoke(invokeCtx, backend, prompt)
		results <- invokeResult{response: response, err: err}
	}()

	result := <-results

	state.mu.Lock()
	cancelled := state.cancelled
	state.turn = nil
	state.cancel = nil
	state.mu.Unlock()

	if cancelled {
		if result.err == nil {
			// The response raced the cancellation and lost.
			s.logger.Info("discarding late backend response",
				zap.String("turn", string(turn.ID)),
				zap.String("backend", string(backend.ID)))
		}
		return domain.BackendResponse{}, domain.ErrTurnCancelled
	}

	if result.err != nil {
		switch {
		case errors.Is(result.err, context.DeadlineExceeded):
			return domain.BackendResponse{}, fmt.Errorf("backend %s: %w", backend.ID, domain.ErrBackendTimeout)
		case errors.Is(result.err, context.Canceled):
			return domain.BackendResponse{}, domain.ErrTurnCancelled
		case errors.Is(result.err, domain.ErrBackendTimeout), errors.Is(result.err, domain.ErrBackendUnavailable):
			return domain.BackendResponse{}, result.err
		default:
			return domain.BackendResponse{}, fmt.Errorf("backend %s: %v: %w", backend.ID, result.err, domain.ErrBackendUnavailable)
		}
	}

	return result.response, nil
}

func (s *SessionService) failTurn(turn *domain.Turn, reason domain.FailureReason, cause error) (TurnResult, error) {
	if !turn.Terminal() {
		if err := turn.Transition(domain.TurnFailed); err != nil {
			return TurnResult{}, err
		}
	}
	turn.FailureReason = reason
	turn.EndedAt = s.clock.Now()

	return TurnResult{Turn: *turn}, cause
}

func (s *SessionService) loadOrCreateSession(ctx context.Context, cmd SendMessageCommand) (domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, cmd.Session)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return domain.Session{}, fmt.Errorf("get session by id: %w", err)
	}

	now := s.clock.Now()
	session = domain.Session{
		ID:             cmd.Session,
		Account:        cmd.Account,
		Title:          domain.SessionTitle(cmd.Content),
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if session.ID == "" {
		session.ID = domain.SessionID(uuid.NewString())
	}
	if err := session.Validate(); err != nil {
		return domain.Session{}, err
	}

	return session, nil
}

func (s *SessionService) persistMemory(block domain.MemoryBlock) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	for attempt := 1; attempt <= s.config.memoryRetries(); attempt++ {
		if _, err = s.memory.Put(ctx, block); err == nil {
			return
		}
		s.logger.Warn("memory block persist failed",
			zap.String("turn", string(block.Turn)),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	s.logger.Error("memory block dropped after retries",
		zap.String("turn", string(block.Turn)),
		zap.Error(err))
}

func (s *SessionService) state(id domain.SessionID) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.states == nil {
		s.states = map[domain.SessionID]*sessionState{}
	}
	if state, ok := s.states[id]; ok {
		return state
	}

	state := &sessionState{slot: make(chan struct{}, 1)}
	s.states[id] = state
	return state
}

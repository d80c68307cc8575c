package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

// The ports are small enough that hand-written in-memory fakes keep the tests
// self-contained.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fakeAccountRepo struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]domain.Account
}

func newFakeAccountRepo(accounts ...domain.Account) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: map[domain.AccountID]domain.Account{}}
	for _, account := range accounts {
		repo.accounts[account.ID] = account
	}
	return repo
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id domain.AccountID) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

func (r *fakeAccountRepo) List(_ context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accounts := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (r *fakeAccountRepo) Save(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
	return nil
}

type fakeBackendRepo struct {
	mu       sync.RWMutex
	backends map[domain.BackendID]domain.Backend
}

func newFakeBackendRepo(backends ...domain.Backend) *fakeBackendRepo {
	repo := &fakeBackendRepo{backends: map[domain.BackendID]domain.Backend{}}
	for _, backend := range backends {
		repo.backends[backend.ID] = backend
	}
	return repo
}

func (r *fakeBackendRepo) GetByID(_ context.Context, id domain.BackendID) (domain.Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	backend, ok := r.backends[id]
	if !ok {
		return domain.Backend{}, domain.ErrBackendNotFound
	}
	return backend, nil
}

func (r *fakeBackendRepo) List(_ context.Context) ([]domain.Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	backends := make([]domain.Backend, 0, len(r.backends))
	for _, backend := range r.backends {
		backends = append(backends, backend)
	}
	sort.Slice(backends, func(i, j int) bool { return backends[i].ID < backends[j].ID })
	return backends, nil
}

func (r *fakeBackendRepo) Save(_ context.Context, backend domain.Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[backend.ID] = backend
	return nil
}

type fakeLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func newFakeLedgerRepo(entries ...domain.LedgerEntry) *fakeLedgerRepo {
	return &fakeLedgerRepo{entries: entries}
}

func (r *fakeLedgerRepo) Append(_ context.Context, entry domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeLedgerRepo) ListByAccount(_ context.Context, account domain.AccountID) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]domain.LedgerEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.Account == account {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

type fakeSessionRepo struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[domain.SessionID]domain.Session{}}
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id domain.SessionID) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *fakeSessionRepo) ListByAccount(_ context.Context, account domain.AccountID) ([]domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]domain.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		if session.Account == account {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions, nil
}

func (r *fakeSessionRepo) Save(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

type fakeMemoryRepo struct {
	mu     sync.RWMutex
	blocks map[domain.BlockID]domain.MemoryBlock
	// failures makes the next N saves fail, for retry tests.
	failures int
	saveErr  error
}

func newFakeMemoryRepo(blocks ...domain.MemoryBlock) *fakeMemoryRepo {
	repo := &fakeMemoryRepo{blocks: map[domain.BlockID]domain.MemoryBlock{}}
	for _, block := range blocks {
		repo.blocks[block.ID] = block
	}
	return repo
}

func (r *fakeMemoryRepo) GetByID(_ context.Context, id domain.BlockID) (domain.MemoryBlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	block, ok := r.blocks[id]
	if !ok {
		return domain.MemoryBlock{}, domain.ErrBlockNotFound
	}
	return block, nil
}

func (r *fakeMemoryRepo) ListByAccount(_ context.Context, account domain.AccountID) ([]domain.MemoryBlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blocks := make([]domain.MemoryBlock, 0, len(r.blocks))
	for _, block := range r.blocks {
		if block.Account == account {
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

func (r *fakeMemoryRepo) Save(_ context.Context, block domain.MemoryBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return r.saveErr
	}
	r.blocks[block.ID] = block
	return nil
}

func (r *fakeMemoryRepo) Delete(_ context.Context, id domain.BlockID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocks, id)
	return nil
}

func (r *fakeMemoryRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blocks)
}

func (r *fakeMemoryRepo) all() []domain.MemoryBlock {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blocks := make([]domain.MemoryBlock, 0, len(r.blocks))
	for _, block := range r.blocks {
		blocks = append(blocks, block)
	}
	return blocks
}

// fakeAdapter scripts backend behavior per backend id.
type fakeAdapter struct {
	mu sync.Mutex
	// responses maps backend id to a scripted outcome.
	responses map[domain.BackendID]invokeResult
	// blockOn, when set, makes calls to that backend wait for release (or
	// context cancellation).
	blockOn domain.BackendID
	release chan struct{}
	// lateResponse, when set with blockOn, returns this result after the
	// release channel closes instead of the context error.
	lateResponse *invokeResult

	calls       []domain.BackendID
	prompts     []domain.PromptContext
	inFlight    int
	maxInFlight int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		responses: map[domain.BackendID]invokeResult{},
		release:   make(chan struct{}),
	}
}

func (a *fakeAdapter) respond(backend domain.BackendID, content string, tokens int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[backend] = invokeResult{response: domain.BackendResponse{Content: content, TokensUsed: tokens}}
}

func (a *fakeAdapter) fail(backend domain.BackendID, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[backend] = invokeResult{err: err}
}

func (a *fakeAdapter) Invoke(ctx context.Context, backend domain.Backend, prompt domain.PromptContext) (domain.BackendResponse, error) {
	a.mu.Lock()
	a.calls = append(a.calls, backend.ID)
	a.prompts = append(a.prompts, prompt)
	a.inFlight++
	if a.inFlight > a.maxInFlight {
		a.maxInFlight = a.inFlight
	}
	blocked := a.blockOn == backend.ID
	late := a.lateResponse
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inFlight--
		a.mu.Unlock()
	}()

	if blocked {
		if late != nil {
			// Ignore cancellation so the response can race it and lose.
			<-a.release
			return late.response, late.err
		}
		select {
		case <-ctx.Done():
			return domain.BackendResponse{}, ctx.Err()
		case <-a.release:
			return domain.BackendResponse{}, ctx.Err()
		}
	}

	a.mu.Lock()
	result, ok := a.responses[backend.ID]
	a.mu.Unlock()
	if !ok {
		return domain.BackendResponse{Content: "ok", TokensUsed: 100}, nil
	}
	return result.response, result.err
}

func (a *fakeAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *fakeAdapter) lastPrompt() domain.PromptContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.prompts) == 0 {
		return domain.PromptContext{}
	}
	return a.prompts[len(a.prompts)-1]
}

func (a *fakeAdapter) maxConcurrent() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxInFlight
}

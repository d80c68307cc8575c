package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

const (
	configName       = "config"
	configType       = "toml"
	accountsPathKey  = "accounts.path"
	stateFileMode    = 0o600
	stateDirMode     = 0o700
	stateConfigDir   = ".prometheus"
	accountsFileName = "accounts.toml"
	tempFilePattern  = ".prom-*.toml.tmp"
)

// Repository persists accounts in a single TOML file guarded by a per-path
// lock, so multiple instances pointed at the same file serialize their writes.
type Repository struct {
	accountsPath string
	mu           *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.AccountRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, stateConfigDir, accountsFileName)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, stateConfigDir))
	cfg.SetDefault(accountsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	accountsPath := cfg.GetString(accountsPathKey)
	if accountsPath == "" {
		return nil, errors.New("accounts path is empty")
	}
	accountsPath, err = normalizeStatePath(accountsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{accountsPath: accountsPath, mu: lockForPath(accountsPath)}, nil
}

func (r *Repository) Save(ctx context.Context, account domain.Account) error {
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

	encoded := toAccountSchema(account)
	updated := false
	for i := range file.Accounts {
		if file.Accounts[i].ID == encoded.ID {
			file.Accounts[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Accounts = append(file.Accounts, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeTOMLFile(r.accountsPath, file)
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Account{}, err
	}

	for _, entry := range file.Accounts {
		if entry.ID == string(id) {
			return fromAccountSchema(entry), nil
		}
	}

	return domain.Account{}, domain.ErrAccountNotFound
}

func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, fromAccountSchema(entry))
	}

	return accounts, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.accountsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read accounts file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode accounts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeStatePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve state path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func writeTOMLFile(path string, file any) error {
	if err := os.MkdirAll(filepath.Dir(path), stateDirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(path, stateFileMode); err != nil {
		return fmt.Errorf("chmod file: %w", err)
	}

	return nil
}

func toAccountSchema(account domain.Account) accountSchema {
	scopes := make(map[string]bool, len(account.Scopes))
	for scope, enabled := range account.Scopes {
		scopes[string(scope)] = enabled
	}

	assignments := make(map[string]string, len(account.Policy.Assignments))
	for category, backend := range account.Policy.Assignments {
		assignments[string(category)] = string(backend)
	}

	return accountSchema{
		ID:          string(account.ID),
		Name:        account.Name,
		SafetyModel: string(account.SafetyModel),
		Scopes:      scopes,
		Policy: policySchema{
			Mode:        string(account.Policy.Mode),
			Pinned:      string(account.Policy.Pinned),
			Assignments: assignments,
			Weights: weightsSchema{
				Speed:      account.Policy.Weights.Speed,
				Accuracy:   account.Policy.Weights.Accuracy,
				Creativity: account.Policy.Weights.Creativity,
				Cost:       account.Policy.Weights.Cost,
			},
		},
		CreatedAt: formatTime(account.CreatedAt),
	}
}

func fromAccountSchema(account accountSchema) domain.Account {
	var scopes domain.ScopeConfig
	if len(account.Scopes) > 0 {
		scopes = make(domain.ScopeConfig, len(account.Scopes))
		for scope, enabled := range account.Scopes {
			scopes[domain.ScopeID(scope)] = enabled
		}
	}

	var assignments map[domain.Category]domain.BackendID
	if len(account.Policy.Assignments) > 0 {
		assignments = make(map[domain.Category]domain.BackendID, len(account.Policy.Assignments))
		for category, backend := range account.Policy.Assignments {
			assignments[domain.Category(category)] = domain.BackendID(backend)
		}
	}

	decoded := domain.Account{
		ID:          domain.AccountID(account.ID),
		Name:        account.Name,
		SafetyModel: domain.SafetyModelID(account.SafetyModel),
		Scopes:      scopes,
		Policy: domain.RoutingPolicy{
			Mode:        domain.RoutingMode(account.Policy.Mode),
			Pinned:      domain.BackendID(account.Policy.Pinned),
			Assignments: assignments,
			Weights: domain.ScoreWeights{
				Speed:      account.Policy.Weights.Speed,
				Accuracy:   account.Policy.Weights.Accuracy,
				Creativity: account.Policy.Weights.Creativity,
				Cost:       account.Policy.Weights.Cost,
			},
		},
		CreatedAt: parseTime(account.CreatedAt),
	}
	decoded.ApplyDefaults()

	return decoded
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bnema/prometheus-orchestrator/internal/adapters/backend/openaicompat"
	tomlrepo "github.com/bnema/prometheus-orchestrator/internal/adapters/repo/toml"
	chainstore "github.com/bnema/prometheus-orchestrator/internal/adapters/secrets/chain"
	"github.com/bnema/prometheus-orchestrator/internal/application"
	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/logging"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

type app struct {
	accountService  *application.AccountService
	registryService *application.RegistryService
	sessionService  *application.SessionService
	ledgerService   *application.LedgerService
	memoryService   *application.MemoryService
	secretStore     ports.SecretStore
	logger          *zap.Logger
	now             func() time.Time
}

func wireApp() (*app, error) {
	logger, err := logging.New(os.Getenv("PROM_DEBUG") != "")
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	cfg := viper.New()
	accountRepo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}
	backendRepo, err := tomlrepo.NewBackendRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire backend repository: %w", err)
	}
	sessionRepo, err := tomlrepo.NewSessionRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}
	ledgerRepo, err := tomlrepo.NewLedgerRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire ledger repository: %w", err)
	}
	memoryRepo, err := tomlrepo.NewMemoryRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire memory repository: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	secretStore, err := chainstore.NewPassFirstWithFileFallback(filepath.Join(homeDir, ".prometheus", "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	clock := ports.SystemClock{}
	ledgerService := application.NewLedgerService(accountRepo, ledgerRepo, clock, application.LedgerConfig{})
	accountService := application.NewAccountService(accountRepo, backendRepo, ledgerService, clock)
	registryService := application.NewRegistryService(backendRepo)
	routerService := application.NewRouterService(backendRepo, domain.BackendID(envOrDefault("PROM_FALLBACK_BACKEND", "gpt4")))
	safetyService := application.NewSafetyService()
	memoryService := application.NewMemoryService(memoryRepo, clock)

	adapter := &openaicompat.Adapter{
		Secrets:        secretStore,
		RequestTimeout: 60 * time.Second,
	}

	sessionService := application.NewSessionService(
		sessionRepo,
		accountRepo,
		backendRepo,
		adapter,
		routerService,
		ledgerService,
		safetyService,
		memoryService,
		clock,
		logger,
		application.SessionConfig{},
	)

	return &app{
		accountService:  accountService,
		registryService: registryService,
		sessionService:  sessionService,
		ledgerService:   ledgerService,
		memoryService:   memoryService,
		secretStore:     secretStore,
		logger:          logger,
		now:             time.Now,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

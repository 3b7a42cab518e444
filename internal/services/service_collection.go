package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"admithub/internal/cache"
	"admithub/internal/config"
	"admithub/internal/database"
	"admithub/internal/events"
	"admithub/internal/repositories"
	"admithub/internal/utils"

	"go.uber.org/zap"
)

// ServiceCollection holds all services with dependency injection
type ServiceCollection struct {
	// Core services
	AuthService        AuthService        `json:"-"`
	UserService        UserService        `json:"-"`
	ApplicationService ApplicationService `json:"-"`
	EmailService       EmailService       `json:"-"`

	// Repository collection
	Repositories *repositories.Collection `json:"-"`

	// Infrastructure components
	Cache     cache.Cache       `json:"-"`
	EventBus  events.EventBus   `json:"-"`
	Storage   utils.FileStorage `json:"-"`
	Logger    *zap.Logger       `json:"-"`
	Config    *config.Config    `json:"-"`
	DBManager *database.Manager `json:"-"`

	mu          sync.RWMutex   `json:"-"`
	startTime   time.Time      `json:"-"`
	initialized bool           `json:"-"`
}

// ServiceHealth reports the health of the collection and its dependencies
type ServiceHealth struct {
	Status       string                   `json:"status"`
	Timestamp    time.Time                `json:"timestamp"`
	Dependencies map[string]ServiceStatus `json:"dependencies"`
	Uptime       time.Duration            `json:"uptime"`
	Issues       []string                 `json:"issues,omitempty"`
}

// ServiceStatus represents the status of an individual dependency
type ServiceStatus struct {
	Name         string        `json:"name"`
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

// NewServiceCollection creates a fully wired service collection
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	collection := &ServiceCollection{
		DBManager: dbManager,
		Config:    cfg,
		Logger:    logger,
		startTime: time.Now(),
	}

	// Initialize in dependency order
	if err := collection.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	if err := collection.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := collection.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	collection.initialized = true
	logger.Info("Service collection initialized successfully")

	return collection, nil
}

// ===============================
// INITIALIZATION METHODS
// ===============================

// initializeInfrastructure sets up cache, event bus, and file storage
func (sc *ServiceCollection) initializeInfrastructure() error {
	sc.Logger.Info("Initializing infrastructure components")

	cacheConfig := cache.DefaultConfig()
	cacheConfig.RedisURL = sc.Config.Cache.RedisURL
	cacheConfig.KeyPrefix = sc.Config.Cache.KeyPrefix
	if sc.Config.Cache.DefaultTTL > 0 {
		cacheConfig.DefaultTTL = sc.Config.Cache.DefaultTTL
	}
	cacheConfig.DialTimeout = sc.Config.Cache.DialTimeout
	cacheConfig.ReadTimeout = sc.Config.Cache.ReadTimeout
	cacheConfig.WriteTimeout = sc.Config.Cache.WriteTimeout

	c, err := cache.New(cacheConfig, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = c

	sc.EventBus = events.NewInMemoryEventBus(events.DefaultConfig(), sc.Logger)

	if sc.Config.Cloudinary.CloudName != "" {
		storage, err := utils.NewCloudinaryService(&sc.Config.Cloudinary, sc.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudinary: %w", err)
		}
		sc.Storage = storage
	}

	sc.Logger.Info("Infrastructure components initialized")
	return nil
}

// initializeRepositories sets up the repository layer
func (sc *ServiceCollection) initializeRepositories() error {
	sc.Logger.Info("Initializing repositories")

	repos, err := repositories.NewCollection(sc.DBManager, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository collection: %w", err)
	}
	sc.Repositories = repos

	sc.Logger.Info("Repositories initialized")
	return nil
}

// initializeServices wires the service layer
func (sc *ServiceCollection) initializeServices() error {
	sc.Logger.Info("Initializing services")

	sc.ApplicationService = NewApplicationService(
		sc.Repositories.Application,
		sc.Repositories.User,
		sc.Cache,
		sc.EventBus,
		sc.Storage,
		sc.Logger,
	)

	sc.UserService = NewUserService(
		sc.Repositories.User,
		sc.Repositories.Session,
		sc.Cache,
		sc.EventBus,
		sc.Storage,
		sc.Logger,
	)

	sc.AuthService = NewAuthService(
		sc.Repositories.User,
		sc.Repositories.Session,
		sc.ApplicationService,
		sc.EventBus,
		&sc.Config.Auth,
		sc.Logger,
	)

	sc.EmailService = NewEmailService(&sc.Config.Email, sc.Logger)

	if err := RegisterEmailNotifier(sc.EventBus, sc.EmailService); err != nil {
		return fmt.Errorf("failed to register email notifier: %w", err)
	}

	sc.Logger.Info("All services initialized")
	return nil
}

// ===============================
// LIFECYCLE
// ===============================

// Start launches background components
func (sc *ServiceCollection) Start(ctx context.Context) error {
	if err := sc.EventBus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	return nil
}

// Shutdown stops background components and closes connections
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down service collection")

	var issues []string

	if err := sc.EventBus.Stop(ctx); err != nil {
		issues = append(issues, fmt.Sprintf("event bus: %v", err))
	}
	if err := sc.Cache.Close(); err != nil {
		issues = append(issues, fmt.Sprintf("cache: %v", err))
	}

	if len(issues) > 0 {
		return fmt.Errorf("shutdown completed with issues: %v", issues)
	}

	sc.Logger.Info("Service collection shut down cleanly")
	return nil
}

// ===============================
// HEALTH
// ===============================

// HealthCheck verifies the collection's infrastructure dependencies
func (sc *ServiceCollection) HealthCheck(ctx context.Context) (*ServiceHealth, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	health := &ServiceHealth{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Dependencies: make(map[string]ServiceStatus),
		Uptime:       time.Since(sc.startTime),
	}

	checks := []struct {
		name  string
		check func(context.Context) error
	}{
		{"database", sc.DBManager.Health},
		{"cache", sc.Cache.Health},
		{"events", func(context.Context) error { return sc.EventBus.Health() }},
	}

	for _, dep := range checks {
		start := time.Now()
		err := dep.check(ctx)
		status := ServiceStatus{
			Name:         dep.name,
			Status:       "healthy",
			ResponseTime: time.Since(start),
		}
		if err != nil {
			status.Status = "unhealthy"
			status.Error = err.Error()
			health.Status = "degraded"
			health.Issues = append(health.Issues, fmt.Sprintf("%s: %v", dep.name, err))
		}
		health.Dependencies[dep.name] = status
	}

	return health, nil
}

package app

import (
	"context"
	"fmt"

	"github.com/upb/gitstats/backend/auth"
	"github.com/upb/gitstats/backend/config"
	"github.com/upb/gitstats/backend/handlers"
	"github.com/upb/gitstats/backend/internal/policy"
	"github.com/upb/gitstats/backend/middleware"
	"github.com/upb/gitstats/backend/services/github"
	"github.com/upb/gitstats/backend/services/ratelimit"
	"github.com/upb/gitstats/backend/token"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Core
	Tokens *token.Service
	Policy *policy.Table
	Bridge *auth.Bridge

	// Collaborators
	GitHub      *github.Client
	RateLimiter *ratelimit.RateLimitService

	// HTTP
	AuthMiddleware   *middleware.AuthMiddleware
	PolicyMiddleware *middleware.PolicyMiddleware
	UserHandler      *handlers.UserHandler
	HealthHandler    *handlers.HealthHandler
	AuthHandler      *auth.Handler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initTokens(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	deps.initGitHub(cfg)
	deps.initRateLimit(cfg)

	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.Policy = policy.MustDefaultTable()
	deps.PolicyMiddleware = middleware.NewPolicyMiddleware(deps.Policy, logger)
	deps.UserHandler = handlers.NewUserHandler(deps.GitHub, logger)
	deps.HealthHandler = handlers.NewHealthHandler(logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initTokens(cfg *config.Config) error {
	svc, err := token.NewService(token.Config{
		SigningKey: []byte(cfg.Auth.JWTSecret),
		TTL:        cfg.Auth.JWTTTL,
		Issuer:     cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return err
	}

	d.Tokens = svc
	d.AuthMiddleware = middleware.NewAuthMiddleware(svc, d.Logger)
	d.Logger.Info("token service initialized", zap.Duration("ttl", svc.TTL()))
	return nil
}

func (d *Dependencies) initGitHub(cfg *config.Config) {
	d.GitHub = github.NewClient(github.Config{
		BaseURL:         cfg.GitHub.APIBaseURL,
		GraphQLEndpoint: cfg.GitHub.GraphQLEndpoint,
		UserAgent:       cfg.GitHub.UserAgent,
		Timeout:         cfg.GitHub.Timeout,
	}, d.Logger)
}

func (d *Dependencies) initRateLimit(cfg *config.Config) {
	d.RateLimiter = ratelimit.NewRateLimitService(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, d.Logger)
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	bridge, err := auth.NewBridge(d.Tokens, cfg.Auth.FrontEndURL, d.Logger)
	if err != nil {
		return err
	}
	d.Bridge = bridge

	oauthCfg := auth.NewOAuthConfig(cfg)
	if oauthCfg == nil {
		d.Logger.Warn("github oauth not configured, login endpoints disabled")
		d.AuthHandler = auth.NewHandler(cfg, nil, d.GitHub, bridge, d.Logger)
		return nil
	}

	d.AuthHandler = auth.NewHandler(cfg, oauthCfg, d.GitHub, bridge, d.Logger)
	d.Logger.Info("auth handler initialized", zap.Strings("scopes", oauthCfg.Scopes))
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}

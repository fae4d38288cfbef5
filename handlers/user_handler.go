package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/gitstats/backend/internal/observability"
	"github.com/upb/gitstats/backend/middleware"
	"github.com/upb/gitstats/backend/models"
	"github.com/upb/gitstats/backend/services"
	"github.com/upb/gitstats/backend/utils"
	"go.uber.org/zap"
)

// GitHubService defines the GitHub lookups the API exposes
type GitHubService interface {
	GetUser(ctx context.Context, username string) (*models.GitHubUser, error)
	GetRepos(ctx context.Context, username string) ([]models.GitHubRepo, error)
	GetLanguageStats(ctx context.Context, username string) (models.LanguageStats, error)
	GetEvents(ctx context.Context, username string) ([]models.GitHubEvent, error)

	GetReposForToken(ctx context.Context, accessToken string) ([]models.GitHubRepo, error)
	GetEventsForToken(ctx context.Context, accessToken string) ([]models.GitHubEvent, error)
	GetContributionsForToken(ctx context.Context, accessToken string) (*models.Contributions, error)
	GetOverviewForToken(ctx context.Context, accessToken string) (*models.Overview, error)
}

// UserHandler handles the public user lookups and the signed-in user's endpoints
type UserHandler struct {
	github GitHubService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(github GitHubService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		github: github,
		logger: logger,
	}
}

// HandleMe handles GET /api/user/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		// Unreachable behind the policy middleware
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}
	h.respond(w, models.NewCurrentUser(*principal))
}

// HandleGetUser handles GET /api/users/{username}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}
	user, err := h.github.GetUser(r.Context(), username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, user)
}

// HandleGetRepos handles GET /api/users/{username}/repos
func (h *UserHandler) HandleGetRepos(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}
	repos, err := h.github.GetRepos(r.Context(), username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, nonNil(repos))
}

// HandleGetLanguages handles GET /api/users/{username}/languages
func (h *UserHandler) HandleGetLanguages(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}
	stats, err := h.github.GetLanguageStats(r.Context(), username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if stats == nil {
		stats = models.LanguageStats{}
	}
	h.respond(w, stats)
}

// HandleGetEvents handles GET /api/users/{username}/events
func (h *UserHandler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}
	events, err := h.github.GetEvents(r.Context(), username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, nonNil(events))
}

// HandleMyRepos handles GET /api/user/repos
func (h *UserHandler) HandleMyRepos(w http.ResponseWriter, r *http.Request) {
	accessToken, ok := h.credential(w, r)
	if !ok {
		return
	}
	repos, err := h.github.GetReposForToken(r.Context(), accessToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, nonNil(repos))
}

// HandleMyEvents handles GET /api/user/events
func (h *UserHandler) HandleMyEvents(w http.ResponseWriter, r *http.Request) {
	accessToken, ok := h.credential(w, r)
	if !ok {
		return
	}
	events, err := h.github.GetEventsForToken(r.Context(), accessToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, nonNil(events))
}

// HandleMyContributions handles GET /api/user/contributions
func (h *UserHandler) HandleMyContributions(w http.ResponseWriter, r *http.Request) {
	accessToken, ok := h.credential(w, r)
	if !ok {
		return
	}
	contributions, err := h.github.GetContributionsForToken(r.Context(), accessToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, contributions)
}

// HandleMyOverview handles GET /api/user/overview
func (h *UserHandler) HandleMyOverview(w http.ResponseWriter, r *http.Request) {
	accessToken, ok := h.credential(w, r)
	if !ok {
		return
	}
	overview, err := h.github.GetOverviewForToken(r.Context(), accessToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, overview)
}

func (h *UserHandler) username(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := chi.URLParam(r, "username")
	if err := utils.ValidateGitHubLogin(username); err != nil {
		HandleValidationError(w, services.Wrap(services.ErrInvalidUsername, err), observability.ForRequest(h.logger, r))
		return "", false
	}
	return username, true
}

// credential returns the GitHub token sealed into the caller's identity token
func (h *UserHandler) credential(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil || !principal.HasProviderToken() {
		h.fail(w, r, services.ErrMissingCredential)
		return "", false
	}
	return principal.ProviderToken, true
}

func (h *UserHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	HandleServiceError(w, err, observability.ForRequest(h.logger, r))
}

func (h *UserHandler) respond(w http.ResponseWriter, data interface{}) {
	if err := utils.WriteJSON(w, http.StatusOK, data); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// nonNil keeps empty lists serialising as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

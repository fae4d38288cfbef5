package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v58/github"
	"github.com/upb/gitstats/backend/models"
	"github.com/upb/gitstats/backend/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL         = "https://api.github.com"
	DefaultGraphQLEndpoint = "https://api.github.com/graphql"
	DefaultUserAgent       = "GitStatsApp"
	DefaultTimeout         = 10 * time.Second

	perPage = 100

	contributionWindow = 365 * 24 * time.Hour
)

// Config holds configuration for Client
type Config struct {
	BaseURL         string
	GraphQLEndpoint string
	UserAgent       string
	Timeout         time.Duration
}

// Client talks to the GitHub REST and GraphQL APIs. Public lookups are made
// anonymously; the *ForToken methods act on behalf of a signed-in user.
type Client struct {
	config     Config
	httpClient *http.Client
	api        *gh.Client
	logger     *zap.Logger
	group      singleflight.Group
	now        func() time.Time
}

// NewClient creates a new GitHub client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.GraphQLEndpoint == "" {
		config.GraphQLEndpoint = DefaultGraphQLEndpoint
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	httpClient := &http.Client{
		Timeout:   config.Timeout,
		Transport: &loggingTransport{next: http.DefaultTransport, logger: logger},
	}

	api := gh.NewClient(httpClient)
	api.UserAgent = config.UserAgent
	if base, err := url.Parse(config.BaseURL + "/"); err == nil {
		api.BaseURL = base
	} else {
		logger.Warn("invalid GitHub base URL, using default", zap.String("base_url", config.BaseURL), zap.Error(err))
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		api:        api,
		logger:     logger,
		now:        time.Now,
	}
}

// forToken returns an API client that authenticates as the token's owner
func (c *Client) forToken(accessToken string) *gh.Client {
	return c.api.WithAuthToken(accessToken)
}

// GetUser returns the public profile of username
func (c *Client) GetUser(ctx context.Context, username string) (*models.GitHubUser, error) {
	return shared(ctx, c, "user:"+username, func(ctx context.Context) (*models.GitHubUser, error) {
		u, _, err := c.api.Users.Get(ctx, url.PathEscape(username))
		if err != nil {
			return nil, mapError(err)
		}
		return toUserModel(u), nil
	})
}

// GetRepos returns up to 100 public repositories of username
func (c *Client) GetRepos(ctx context.Context, username string) ([]models.GitHubRepo, error) {
	return shared(ctx, c, "repos:"+username, func(ctx context.Context) ([]models.GitHubRepo, error) {
		repos, _, err := c.api.Repositories.ListByUser(ctx, url.PathEscape(username), &gh.RepositoryListByUserOptions{
			ListOptions: gh.ListOptions{PerPage: perPage},
		})
		if err != nil {
			return nil, mapError(err)
		}
		return toRepoModels(repos), nil
	})
}

// GetLanguageStats counts the public repositories of username per primary
// language
func (c *Client) GetLanguageStats(ctx context.Context, username string) (models.LanguageStats, error) {
	repos, err := c.GetRepos(ctx, username)
	if err != nil {
		return nil, err
	}
	return CalculateLanguageStats(repos), nil
}

// GetEvents returns up to 100 recent public events of username
func (c *Client) GetEvents(ctx context.Context, username string) ([]models.GitHubEvent, error) {
	return shared(ctx, c, "events:"+username, func(ctx context.Context) ([]models.GitHubEvent, error) {
		events, _, err := c.api.Activity.ListEventsPerformedByUser(ctx, url.PathEscape(username), true, &gh.ListOptions{PerPage: perPage})
		if err != nil {
			return nil, mapError(err)
		}
		return toEventModels(events), nil
	})
}

// GetUserForToken returns the profile of the user the access token belongs to
func (c *Client) GetUserForToken(ctx context.Context, accessToken string) (*models.GitHubUser, error) {
	if accessToken == "" {
		return nil, services.ErrMissingCredential
	}
	// An empty user selects the authenticated user
	u, _, err := c.forToken(accessToken).Users.Get(ctx, "")
	if err != nil {
		return nil, mapError(err)
	}
	return toUserModel(u), nil
}

// GetProviderAttributes fetches the attributes the login bridge needs
func (c *Client) GetProviderAttributes(ctx context.Context, accessToken string) (models.ProviderAttributes, error) {
	u, err := c.GetUserForToken(ctx, accessToken)
	if err != nil {
		return models.ProviderAttributes{}, err
	}
	return models.ProviderAttributes{
		Login:     u.Login,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}, nil
}

// GetReposForToken returns repositories the user owns or collaborates on
func (c *Client) GetReposForToken(ctx context.Context, accessToken string) ([]models.GitHubRepo, error) {
	if accessToken == "" {
		return nil, services.ErrMissingCredential
	}
	repos, _, err := c.forToken(accessToken).Repositories.ListByAuthenticatedUser(ctx, &gh.RepositoryListByAuthenticatedUserOptions{
		Affiliation: "owner,collaborator",
		ListOptions: gh.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toRepoModels(repos), nil
}

// GetEventsForToken returns the user's events including private ones the
// token may see
func (c *Client) GetEventsForToken(ctx context.Context, accessToken string) ([]models.GitHubEvent, error) {
	user, err := c.GetUserForToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	events, _, err := c.forToken(accessToken).Activity.ListEventsPerformedByUser(ctx, url.PathEscape(user.Login), false, &gh.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, mapError(err)
	}
	return toEventModels(events), nil
}

// GetContributionsForToken returns the user's contribution calendar for the
// last 365 days
func (c *Client) GetContributionsForToken(ctx context.Context, accessToken string) (*models.Contributions, error) {
	user, err := c.GetUserForToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	to := c.now().UTC()
	from := to.Add(-contributionWindow)

	api := c.forToken(accessToken)
	req, err := api.NewRequest(http.MethodPost, c.config.GraphQLEndpoint, graphQLRequest{
		Query: contributionsQuery,
		Variables: map[string]interface{}{
			"username": user.Login,
			"from":     from.Format(time.RFC3339),
			"to":       to.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, services.WrapInternal("failed to build GraphQL request", err)
	}

	var resp contributionsResponse
	if _, err := api.Do(ctx, req, &resp); err != nil {
		return nil, mapError(err)
	}

	if len(resp.Errors) > 0 {
		return nil, graphQLFailure(resp.Errors)
	}
	if resp.Data == nil || resp.Data.User == nil || resp.Data.User.ContributionsCollection == nil {
		return nil, services.ErrGitHubUserNotFound
	}

	cc := resp.Data.User.ContributionsCollection
	return &models.Contributions{
		From:                          from,
		To:                            to,
		TotalCommitContributions:      cc.TotalCommitContributions,
		TotalIssueContributions:       cc.TotalIssueContributions,
		TotalPullRequestContributions: cc.TotalPullRequestContributions,
		TotalReviewContributions:      cc.TotalPullRequestReviewContributions,
		Calendar:                      cc.ContributionCalendar,
	}, nil
}

// GetOverviewForToken fetches the user's profile and repositories
// concurrently and derives language statistics from the repositories
func (c *Client) GetOverviewForToken(ctx context.Context, accessToken string) (*models.Overview, error) {
	if accessToken == "" {
		return nil, services.ErrMissingCredential
	}

	var (
		user  *models.GitHubUser
		repos []models.GitHubRepo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = c.GetUserForToken(gctx, accessToken)
		return err
	})
	g.Go(func() error {
		var err error
		repos, err = c.GetReposForToken(gctx, accessToken)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.Overview{
		User:      user,
		Repos:     repos,
		Languages: CalculateLanguageStats(repos),
	}, nil
}

// CalculateLanguageStats counts repositories per non-blank primary language
func CalculateLanguageStats(repos []models.GitHubRepo) models.LanguageStats {
	stats := make(models.LanguageStats)
	for _, r := range repos {
		if strings.TrimSpace(r.Language) == "" {
			continue
		}
		stats[r.Language]++
	}
	return stats
}

// shared collapses identical concurrent anonymous lookups into one upstream
// call. The upstream call is detached from any single caller's cancellation;
// each caller still stops waiting when its own context ends.
func shared[T any](ctx context.Context, c *Client, key string, fetch func(context.Context) (T, error)) (T, error) {
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fetch(context.WithoutCancel(ctx))
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// mapError maps a go-github failure onto the domain taxonomy
func mapError(err error) error {
	var (
		rateErr   *gh.RateLimitError
		abuseErr  *gh.AbuseRateLimitError
		respErr   *gh.ErrorResponse
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.As(err, &rateErr):
		return services.Wrap(services.ErrGitHubRateLimit, err).
			WithDetail("reset", strconv.FormatInt(rateErr.Rate.Reset.Unix(), 10))
	case errors.As(err, &abuseErr):
		limited := services.Wrap(services.ErrGitHubRateLimit, err)
		if abuseErr.RetryAfter != nil {
			limited.WithDetail("retry_after", abuseErr.RetryAfter.String())
		}
		return limited
	case errors.As(err, &respErr):
		return statusError(respErr)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return services.Wrap(services.ErrInternal, fmt.Errorf("decode github response: %w", err))
	default:
		return services.WrapExternal("GitHub API unavailable", err)
	}
}

// statusError maps a non-2xx GitHub response onto the domain taxonomy
func statusError(e *gh.ErrorResponse) error {
	if e.Response == nil {
		return services.Wrap(services.ErrGitHubUnavailable, e)
	}

	switch e.Response.StatusCode {
	case http.StatusNotFound:
		return services.Wrap(services.ErrGitHubUserNotFound, e)
	case http.StatusUnauthorized:
		return services.Wrap(services.ErrCredentialRejected, e)
	case http.StatusTooManyRequests:
		limited := services.Wrap(services.ErrGitHubRateLimit, e)
		if reset := e.Response.Header.Get("X-RateLimit-Reset"); reset != "" {
			limited.WithDetail("reset", reset)
		}
		return limited
	default:
		return services.Wrap(services.ErrGitHubUnavailable, e)
	}
}

func graphQLFailure(errs []graphQLError) error {
	messages := make([]string, 0, len(errs))
	notFound := false
	for _, e := range errs {
		messages = append(messages, e.Message)
		if e.Type == "NOT_FOUND" {
			notFound = true
		}
	}
	cause := fmt.Errorf("graphql: %s", strings.Join(messages, "; "))
	if notFound {
		return services.Wrap(services.ErrGitHubUserNotFound, cause)
	}
	return services.Wrap(services.ErrGitHubUnavailable, cause)
}

// loggingTransport logs every upstream call at debug level
type loggingTransport struct {
	next   http.RoundTripper
	logger *zap.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.Path),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		t.logger.Debug("github request failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	t.logger.Debug("github request", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}

package github

import (
	"time"

	gh "github.com/google/go-github/v58/github"
	"github.com/upb/gitstats/backend/models"
)

// Conversions from go-github's REST types to the view models. Only the
// fields the views need are carried over.

func toUserModel(u *gh.User) *models.GitHubUser {
	return &models.GitHubUser{
		Login:     u.GetLogin(),
		AvatarURL: u.GetAvatarURL(),
		Name:      u.GetName(),
		Bio:       u.GetBio(),
		CreatedAt: timeOf(u.CreatedAt),
		Followers: u.GetFollowers(),
		Following: u.GetFollowing(),
	}
}

func toRepoModels(in []*gh.Repository) []models.GitHubRepo {
	out := make([]models.GitHubRepo, 0, len(in))
	for _, r := range in {
		out = append(out, models.GitHubRepo{
			ID:              r.GetID(),
			Name:            r.GetName(),
			Description:     r.GetDescription(),
			HTMLURL:         r.GetHTMLURL(),
			StargazersCount: r.GetStargazersCount(),
			ForksCount:      r.GetForksCount(),
			Language:        r.GetLanguage(),
		})
	}
	return out
}

func toEventModels(in []*gh.Event) []models.GitHubEvent {
	out := make([]models.GitHubEvent, 0, len(in))
	for _, e := range in {
		ev := models.GitHubEvent{ID: e.GetID(), Type: e.GetType(), CreatedAt: timeOf(e.CreatedAt)}
		if e.Repo != nil {
			ev.Repo = &models.GitHubRepoRef{ID: e.Repo.GetID(), Name: e.Repo.GetName()}
		}
		out = append(out, ev)
	}
	return out
}

func timeOf(ts *gh.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}

// GraphQL

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type contributionsResponse struct {
	Data *struct {
		User *struct {
			ContributionsCollection *struct {
				TotalCommitContributions            int                         `json:"totalCommitContributions"`
				TotalIssueContributions             int                         `json:"totalIssueContributions"`
				TotalPullRequestContributions       int                         `json:"totalPullRequestContributions"`
				TotalPullRequestReviewContributions int                         `json:"totalPullRequestReviewContributions"`
				ContributionCalendar                models.ContributionCalendar `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

const contributionsQuery = `query($username: String!, $from: DateTime!, $to: DateTime!) {
  user(login: $username) {
    contributionsCollection(from: $from, to: $to) {
      totalCommitContributions
      totalIssueContributions
      totalPullRequestContributions
      totalPullRequestReviewContributions
      contributionCalendar {
        totalContributions
        weeks {
          contributionDays {
            date
            contributionCount
            color
          }
        }
      }
    }
  }
}`

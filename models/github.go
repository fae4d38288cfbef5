package models

import "time"

// GitHubUser is the profile view returned for /users/{username} and /user
type GitHubUser struct {
	Login     string     `json:"login"`
	AvatarURL string     `json:"avatar_url"`
	Name      string     `json:"name"`
	Bio       string     `json:"bio"`
	CreatedAt *time.Time `json:"created_at"`
	Followers int        `json:"followers"`
	Following int        `json:"following"`
}

// GitHubRepo is the repository view
type GitHubRepo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	HTMLURL         string `json:"html_url"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	Language        string `json:"language"` // primary language
}

// GitHubEvent is the activity-feed view of a GitHub event
type GitHubEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	CreatedAt *time.Time     `json:"created_at"`
	Repo      *GitHubRepoRef `json:"repo"`
}

// GitHubRepoRef identifies the repository an event happened in
type GitHubRepoRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LanguageStats maps a primary language to the number of repos using it
type LanguageStats map[string]int64

// Overview bundles the data the dashboard shows for the signed-in user
type Overview struct {
	User      *GitHubUser   `json:"user"`
	Repos     []GitHubRepo  `json:"repos"`
	Languages LanguageStats `json:"languages"`
}

// CurrentUser is the response body for GET /api/user/me
type CurrentUser struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// NewCurrentUser projects a Principal onto its public fields
func NewCurrentUser(p Principal) CurrentUser {
	return CurrentUser{
		Login:     p.Login,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
	}
}

// Contributions is the contribution history of the signed-in user over a
// date range
type Contributions struct {
	From                          time.Time            `json:"from"`
	To                            time.Time            `json:"to"`
	TotalCommitContributions      int                  `json:"totalCommitContributions"`
	TotalIssueContributions       int                  `json:"totalIssueContributions"`
	TotalPullRequestContributions int                  `json:"totalPullRequestContributions"`
	TotalReviewContributions      int                  `json:"totalPullRequestReviewContributions"`
	Calendar                      ContributionCalendar `json:"contributionCalendar"`
}

// ContributionCalendar is the heat-map grid, one entry per week
type ContributionCalendar struct {
	TotalContributions int                `json:"totalContributions"`
	Weeks              []ContributionWeek `json:"weeks"`
}

// ContributionWeek holds up to seven days of a ContributionCalendar
type ContributionWeek struct {
	Days []ContributionDay `json:"contributionDays"`
}

// ContributionDay is a single calendar cell
type ContributionDay struct {
	Date              string `json:"date"`
	ContributionCount int    `json:"contributionCount"`
	Color             string `json:"color"`
}

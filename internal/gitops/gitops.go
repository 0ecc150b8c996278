// internal/gitops/gitops.go
// Package gitops proxies a small set of GitHub operations through an
// authenticated API client.
package gitops

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
)

var (
	// ErrNoToken means no GitHub token was configured; callers should map
	// this to a client error rather than a server fault.
	ErrNoToken = errors.New("github token not configured")

	ErrUnknownAction = errors.New("unknown github action")
)

const (
	ActionListRepos   = "list_repos"
	ActionCreateIssue = "create_issue"
)

// Request describes one proxied GitHub operation.
type Request struct {
	Action string         `json:"action"`
	Owner  string         `json:"owner,omitempty"`
	Repo   string         `json:"repo,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Service wraps an authenticated GitHub client. A Service built without a
// token rejects every call with ErrNoToken.
type Service struct {
	client *github.Client
	logger *zap.Logger
}

func NewService(token string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{logger: logger.Named("gitops")}
	if token == "" {
		logger.Warn("GitHub token missing; github operations disabled")
		return s
	}
	s.client = github.NewClient(nil).WithAuthToken(token)
	return s
}

// WithClient overrides the API client, used by tests to point at a stub server.
func (s *Service) WithClient(client *github.Client) *Service {
	s.client = client
	return s
}

// Do executes one proxied operation and returns the raw API payload.
func (s *Service) Do(ctx context.Context, req Request) (any, error) {
	if s.client == nil {
		return nil, ErrNoToken
	}

	switch req.Action {
	case ActionListRepos:
		return s.listRepos(ctx)
	case ActionCreateIssue:
		return s.createIssue(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

func (s *Service) listRepos(ctx context.Context) ([]*github.Repository, error) {
	repos, _, err := s.client.Repositories.ListByAuthenticatedUser(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	s.logger.Info("Listed repositories", zap.Int("count", len(repos)))
	return repos, nil
}

func (s *Service) createIssue(ctx context.Context, req Request) (*github.Issue, error) {
	if req.Owner == "" || req.Repo == "" {
		return nil, errors.New("create_issue requires owner and repo")
	}

	issueReq := &github.IssueRequest{}
	if title, ok := req.Data["title"].(string); ok {
		issueReq.Title = github.String(title)
	}
	if body, ok := req.Data["body"].(string); ok {
		issueReq.Body = github.String(body)
	}
	if rawLabels, ok := req.Data["labels"].([]any); ok {
		labels := make([]string, 0, len(rawLabels))
		for _, l := range rawLabels {
			if label, ok := l.(string); ok {
				labels = append(labels, label)
			}
		}
		if len(labels) > 0 {
			issueReq.Labels = &labels
		}
	}

	issue, _, err := s.client.Issues.Create(ctx, req.Owner, req.Repo, issueReq)
	if err != nil {
		return nil, fmt.Errorf("creating issue in %s/%s: %w", req.Owner, req.Repo, err)
	}
	s.logger.Info("Issue created",
		zap.String("repo", req.Owner+"/"+req.Repo),
		zap.Int("number", issue.GetNumber()))
	return issue, nil
}

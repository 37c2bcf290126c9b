package github

import (
	"context"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/core"
	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/retry"

	gh "github.com/google/go-github/v66/github"
)

const (
	perPage = 100
	// maxPages bounds list calls so one huge account cannot stall a request.
	maxPages = 10
)

// Client is a GitHub API client bound to one connection's credential.
type Client struct {
	gh        *gh.Client
	authType  models.AuthType
	retryOpts []retry.Option
	recorder  core.Recorder
}

// WithoutRetry returns a copy that performs every call exactly once.
func (c *Client) WithoutRetry() *Client {
	cp := *c
	cp.retryOpts = append(append([]retry.Option{}, c.retryOpts...), retry.WithMaxAttempts(1))
	return &cp
}

// do runs fn through the retrier and records the outcome under operation.
func (c *Client) do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	opts := append(append([]retry.Option{}, c.retryOpts...), retry.WithOnRetry(func(int, error) {
		c.recorder.RecordGitHubRetry(operation)
	}))

	start := time.Now()
	err := retry.New(opts...).Do(ctx, func(ctx context.Context) error {
		return classify(fn(ctx))
	})
	c.recorder.RecordGitHubAPICall(operation, err == nil, time.Since(start))
	return err
}

// AuthenticatedAccount returns the user behind an OAuth token.
func (c *Client) AuthenticatedAccount(ctx context.Context) (Account, error) {
	var user *gh.User
	err := c.do(ctx, "get_user", func(ctx context.Context) error {
		var err error
		user, _, err = c.gh.Users.Get(ctx, "")
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return toAccount(user)
}

// ListRepositories lists what the credential can reach: the user's repos for
// OAuth, the installation's granted repos for App connections.
func (c *Client) ListRepositories(ctx context.Context) ([]Repo, error) {
	var all []*gh.Repository
	page := 1
	for range maxPages {
		var (
			batch []*gh.Repository
			resp  *gh.Response
		)
		err := c.do(ctx, "list_repositories", func(ctx context.Context) error {
			var err error
			opts := gh.ListOptions{Page: page, PerPage: perPage}
			if c.authType == models.AuthTypeApp {
				var list *gh.ListRepositories
				list, resp, err = c.gh.Apps.ListRepos(ctx, &opts)
				if list != nil {
					batch = list.Repositories
				}
				return err
			}
			batch, resp, err = c.gh.Repositories.ListByAuthenticatedUser(ctx, &gh.RepositoryListByAuthenticatedUserOptions{
				Sort:        "updated",
				ListOptions: opts,
			})
			return err
		})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	repos := make([]Repo, 0, len(all))
	for _, r := range all {
		repo, err := toRepo(r)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

// ListBranches lists the repository's branches with their head SHAs.
// complete is false when the repository has more branches than one listing
// fetches; callers must then not treat missing names as deleted.
func (c *Client) ListBranches(ctx context.Context, owner, repo string) (branches []Branch, complete bool, err error) {
	var all []*gh.Branch
	page := 1
	for range maxPages {
		var (
			batch []*gh.Branch
			resp  *gh.Response
		)
		err := c.do(ctx, "list_branches", func(ctx context.Context) error {
			var err error
			batch, resp, err = c.gh.Repositories.ListBranches(ctx, owner, repo, &gh.BranchListOptions{
				ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
			})
			return err
		})
		if err != nil {
			return nil, false, err
		}
		all = append(all, batch...)
		if resp == nil || resp.NextPage == 0 {
			complete = true
			break
		}
		page = resp.NextPage
	}

	branches = make([]Branch, 0, len(all))
	for _, b := range all {
		branch, err := toBranch(b)
		if err != nil {
			return nil, false, err
		}
		branches = append(branches, branch)
	}
	return branches, complete, nil
}

// ListCommits returns up to limit commits reachable from ref (default branch when empty).
func (c *Client) ListCommits(ctx context.Context, owner, repo, ref string, limit int) ([]Commit, error) {
	if limit <= 0 || limit > perPage {
		limit = perPage
	}

	var raw []*gh.RepositoryCommit
	err := c.do(ctx, "list_commits", func(ctx context.Context) error {
		var err error
		raw, _, err = c.gh.Repositories.ListCommits(ctx, owner, repo, &gh.CommitsListOptions{
			SHA:         ref,
			ListOptions: gh.ListOptions{PerPage: limit},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(raw))
	for _, rc := range raw {
		commit, err := toCommit(rc)
		if err != nil {
			return nil, err
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// ListPullRequests lists by state: "open", "closed" or "all".
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state string) ([]PullRequest, error) {
	if state == "" {
		state = "open"
	}

	var raw []*gh.PullRequest
	err := c.do(ctx, "list_pull_requests", func(ctx context.Context) error {
		var err error
		raw, _, err = c.gh.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{
			State:       state,
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: gh.ListOptions{PerPage: perPage},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	prs := make([]PullRequest, 0, len(raw))
	for _, p := range raw {
		pr, err := toPullRequest(p)
		if err != nil {
			return nil, err
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

// NewPullRequest is the input for CreatePullRequest.
type NewPullRequest struct {
	Title string
	Head  string
	Base  string
	Body  string
	Draft bool
}

func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, in NewPullRequest) (PullRequest, error) {
	var created *gh.PullRequest
	err := c.do(ctx, "create_pull_request", func(ctx context.Context) error {
		var err error
		created, _, err = c.gh.PullRequests.Create(ctx, owner, repo, &gh.NewPullRequest{
			Title: gh.String(in.Title),
			Head:  gh.String(in.Head),
			Base:  gh.String(in.Base),
			Body:  gh.String(in.Body),
			Draft: gh.Bool(in.Draft),
		})
		return err
	})
	if err != nil {
		return PullRequest{}, err
	}
	return toPullRequest(created)
}

// CreateReview submits a review; event is APPROVE, REQUEST_CHANGES or COMMENT.
func (c *Client) CreateReview(ctx context.Context, owner, repo string, number int, event, body string) (Review, error) {
	req := &gh.PullRequestReviewRequest{Event: gh.String(event)}
	if body != "" {
		req.Body = gh.String(body)
	}

	var review *gh.PullRequestReview
	err := c.do(ctx, "create_review", func(ctx context.Context) error {
		var err error
		review, _, err = c.gh.PullRequests.CreateReview(ctx, owner, repo, number, req)
		return err
	})
	if err != nil {
		return Review{}, err
	}
	return toReview(review)
}

// MergePullRequest merges with method "merge", "squash" or "rebase".
func (c *Client) MergePullRequest(ctx context.Context, owner, repo string, number int, method, title, message string) (MergeResult, error) {
	var result *gh.PullRequestMergeResult
	err := c.do(ctx, "merge_pull_request", func(ctx context.Context) error {
		var err error
		result, _, err = c.gh.PullRequests.Merge(ctx, owner, repo, number, message, &gh.PullRequestOptions{
			CommitTitle: title,
			MergeMethod: method,
		})
		return err
	})
	if err != nil {
		return MergeResult{}, err
	}
	return MergeResult{
		SHA:     result.GetSHA(),
		Merged:  result.GetMerged(),
		Message: result.GetMessage(),
	}, nil
}

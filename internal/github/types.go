package github

import (
	"fmt"
	"time"

	gh "github.com/google/go-github/v66/github"
)

// Account is the provider identity a connection acts as.
type Account struct {
	ID    int64
	Login string
	Type  string // "User" or "Organization"
}

type Repo struct {
	ID            int64
	Owner         string
	Name          string
	FullName      string
	DefaultBranch string
	Private       bool
	HTMLURL       string
}

type Branch struct {
	Name      string
	HeadSHA   string
	Protected bool
}

type Commit struct {
	SHA         string
	Message     string
	AuthorName  string
	AuthorEmail string
	AuthorLogin string
	HTMLURL     string
	CommittedAt *time.Time
}

type PullRequest struct {
	Number      int
	Title       string
	Body        string
	State       string // "open" or "closed"
	Merged      bool
	HeadBranch  string
	BaseBranch  string
	HeadSHA     string
	AuthorLogin string
	Draft       bool
	HTMLURL     string
	MergedAt    *time.Time
}

type Review struct {
	ID            int64
	ReviewerLogin string
	State         string
	Body          string
	SubmittedAt   time.Time
}

type MergeResult struct {
	SHA     string `json:"sha"`
	Merged  bool   `json:"merged"`
	Message string `json:"message"`
}

// Installation describes a GitHub App installation.
type Installation struct {
	ID      int64
	Account Account
}

// InstallationToken is a short-lived App credential; it is cached as JSON.
type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func shapeErr(entity, field string) error {
	return fmt.Errorf("%w: %s without %s", ErrUnexpectedShape, entity, field)
}

func toAccount(u *gh.User) (Account, error) {
	if u == nil || u.ID == nil || u.GetLogin() == "" {
		return Account{}, shapeErr("account", "id or login")
	}
	return Account{ID: u.GetID(), Login: u.GetLogin(), Type: u.GetType()}, nil
}

func toRepo(r *gh.Repository) (Repo, error) {
	if r == nil || r.ID == nil {
		return Repo{}, shapeErr("repository", "id")
	}
	if r.GetName() == "" {
		return Repo{}, shapeErr("repository", "name")
	}
	owner := r.GetOwner().GetLogin()
	fullName := r.GetFullName()
	if fullName == "" {
		fullName = owner + "/" + r.GetName()
	}
	return Repo{
		ID:            r.GetID(),
		Owner:         owner,
		Name:          r.GetName(),
		FullName:      fullName,
		DefaultBranch: r.GetDefaultBranch(),
		Private:       r.GetPrivate(),
		HTMLURL:       r.GetHTMLURL(),
	}, nil
}

func toBranch(b *gh.Branch) (Branch, error) {
	if b == nil || b.GetName() == "" {
		return Branch{}, shapeErr("branch", "name")
	}
	return Branch{
		Name:      b.GetName(),
		HeadSHA:   b.GetCommit().GetSHA(),
		Protected: b.GetProtected(),
	}, nil
}

func toCommit(c *gh.RepositoryCommit) (Commit, error) {
	if c == nil || c.GetSHA() == "" {
		return Commit{}, shapeErr("commit", "sha")
	}
	out := Commit{
		SHA:         c.GetSHA(),
		Message:     c.GetCommit().GetMessage(),
		AuthorName:  c.GetCommit().GetAuthor().GetName(),
		AuthorEmail: c.GetCommit().GetAuthor().GetEmail(),
		AuthorLogin: c.GetAuthor().GetLogin(),
		HTMLURL:     c.GetHTMLURL(),
	}
	if d := c.GetCommit().GetAuthor().Date; d != nil {
		t := d.Time
		out.CommittedAt = &t
	}
	return out, nil
}

func toPullRequest(p *gh.PullRequest) (PullRequest, error) {
	if p == nil || p.Number == nil {
		return PullRequest{}, shapeErr("pull request", "number")
	}
	out := PullRequest{
		Number:      p.GetNumber(),
		Title:       p.GetTitle(),
		Body:        p.GetBody(),
		State:       p.GetState(),
		Merged:      p.GetMerged() || p.MergedAt != nil,
		HeadBranch:  p.GetHead().GetRef(),
		BaseBranch:  p.GetBase().GetRef(),
		HeadSHA:     p.GetHead().GetSHA(),
		AuthorLogin: p.GetUser().GetLogin(),
		Draft:       p.GetDraft(),
		HTMLURL:     p.GetHTMLURL(),
	}
	if p.MergedAt != nil {
		t := p.MergedAt.Time
		out.MergedAt = &t
	}
	return out, nil
}

func toReview(r *gh.PullRequestReview) (Review, error) {
	if r == nil || r.ID == nil {
		return Review{}, shapeErr("review", "id")
	}
	out := Review{
		ID:            r.GetID(),
		ReviewerLogin: r.GetUser().GetLogin(),
		State:         r.GetState(),
		Body:          r.GetBody(),
		SubmittedAt:   time.Now(),
	}
	if r.SubmittedAt != nil {
		out.SubmittedAt = r.SubmittedAt.Time
	}
	return out, nil
}

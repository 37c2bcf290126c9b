package github

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v66/github"
)

// ErrWebhookSignature is returned when a delivery fails HMAC validation or no
// secret is configured.
var ErrWebhookSignature = errors.New("github: invalid webhook signature")

// Webhook event kinds this service reacts to.
const (
	WebhookPush         = "push"
	WebhookCreate       = "create"
	WebhookPullRequest  = "pull_request"
	WebhookInstallation = "installation"
	WebhookPing         = "ping"
)

// Delivery is a raw webhook request.
type Delivery struct {
	Event       string
	ID          string
	Signature   string
	ContentType string
	Body        []byte
}

// DeliveryFromRequest reads a delivery off r. The body is consumed.
func DeliveryFromRequest(r *http.Request, maxBytes int64) (Delivery, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return Delivery{}, fmt.Errorf("failed to read webhook body: %w", err)
	}
	sig := r.Header.Get(gh.SHA256SignatureHeader)
	if sig == "" {
		sig = r.Header.Get(gh.SHA1SignatureHeader)
	}
	return Delivery{
		Event:       gh.WebHookType(r),
		ID:          gh.DeliveryID(r),
		Signature:   sig,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Validate checks the delivery's signature and returns the JSON payload.
func (d Delivery) Validate(secret []byte) ([]byte, error) {
	if len(secret) == 0 || d.Signature == "" {
		return nil, ErrWebhookSignature
	}
	contentType := d.ContentType
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if contentType == "" {
		contentType = "application/json"
	}
	payload, err := gh.ValidatePayloadFromBody(contentType, bytes.NewReader(d.Body), d.Signature, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}
	return payload, nil
}

// WebhookEvent is the part of a delivery the mirrors care about. Only the
// fields relevant to Kind are set.
type WebhookEvent struct {
	Kind           string
	Action         string
	RepositoryID   int64
	Branch         string // push and create
	Commits        []Commit
	PullRequest    *PullRequest
	InstallationID int64
}

// ParseWebhook decodes a validated payload. Unknown kinds, tag creations and
// branch deletions yield a nil event.
func ParseWebhook(kind string, payload []byte) (*WebhookEvent, error) {
	switch kind {
	case WebhookPush, WebhookCreate, WebhookPullRequest, WebhookInstallation:
	default:
		return nil, nil
	}

	raw, err := gh.ParseWebHook(kind, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}

	switch e := raw.(type) {
	case *gh.PushEvent:
		if e.GetDeleted() || e.GetRepo().GetID() == 0 {
			return nil, nil
		}
		ev := &WebhookEvent{
			Kind:         kind,
			RepositoryID: e.GetRepo().GetID(),
			Branch:       strings.TrimPrefix(e.GetRef(), "refs/heads/"),
		}
		if !strings.HasPrefix(e.GetRef(), "refs/heads/") {
			ev.Branch = ""
		}
		for _, c := range e.Commits {
			if c.GetID() == "" {
				continue
			}
			commit := Commit{
				SHA:         c.GetID(),
				Message:     c.GetMessage(),
				AuthorName:  c.GetAuthor().GetName(),
				AuthorEmail: c.GetAuthor().GetEmail(),
				AuthorLogin: c.GetAuthor().GetLogin(),
				HTMLURL:     c.GetURL(),
			}
			if c.Timestamp != nil {
				t := c.Timestamp.Time
				commit.CommittedAt = &t
			}
			ev.Commits = append(ev.Commits, commit)
		}
		return ev, nil

	case *gh.CreateEvent:
		if e.GetRefType() != "branch" || e.GetRef() == "" {
			return nil, nil
		}
		return &WebhookEvent{Kind: kind, RepositoryID: e.GetRepo().GetID(), Branch: e.GetRef()}, nil

	case *gh.PullRequestEvent:
		pr, err := toPullRequest(e.GetPullRequest())
		if err != nil {
			return nil, err
		}
		return &WebhookEvent{
			Kind:         kind,
			Action:       e.GetAction(),
			RepositoryID: e.GetRepo().GetID(),
			PullRequest:  &pr,
		}, nil

	case *gh.InstallationEvent:
		if e.GetInstallation().GetID() == 0 {
			return nil, shapeErr("installation", "id")
		}
		return &WebhookEvent{
			Kind:           kind,
			Action:         e.GetAction(),
			InstallationID: e.GetInstallation().GetID(),
		}, nil
	}
	return nil, nil
}

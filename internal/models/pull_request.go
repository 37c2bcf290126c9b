package models

import "time"

// PullRequestState is the mirrored state of a pull request.
type PullRequestState string

const (
	PullRequestOpen   PullRequestState = "open"
	PullRequestClosed PullRequestState = "closed"
	PullRequestMerged PullRequestState = "merged"
)

// PullRequest mirrors a provider pull request.
type PullRequest struct {
	ID           string           `gorm:"primaryKey;type:varchar(36)"                     json:"id"`
	RepositoryID string           `gorm:"not null;uniqueIndex:idx_pr_repo_number,priority:1" json:"repository_id"`
	Number       int              `gorm:"not null;uniqueIndex:idx_pr_repo_number,priority:2" json:"number"`
	Title        string           `gorm:"not null"                                        json:"title"`
	Body         string           `gorm:"type:text"                                       json:"body"`
	State        PullRequestState `gorm:"type:varchar(10);not null;index"                 json:"state"`
	HeadBranch   string           `json:"head_branch"`
	BaseBranch   string           `json:"base_branch"`
	HeadSHA      string           `gorm:"size:40"                                         json:"head_sha"`
	AuthorLogin  string           `json:"author_login"`
	Draft        bool             `json:"draft"`
	HTMLURL      string           `json:"html_url"`
	MergedAt     *time.Time       `json:"merged_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (PullRequest) TableName() string {
	return "git_pull_requests"
}

// ReviewEvent is the verdict submitted with a review.
type ReviewEvent string

const (
	ReviewApprove        ReviewEvent = "APPROVE"
	ReviewRequestChanges ReviewEvent = "REQUEST_CHANGES"
	ReviewComment        ReviewEvent = "COMMENT"
)

// PullRequestReview records a review submitted through this service.
type PullRequestReview struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PullRequestID string    `gorm:"not null;index"              json:"pull_request_id"`
	ExternalID    int64     `gorm:"index"                       json:"external_id"`
	ReviewerLogin string    `json:"reviewer_login"`
	ReviewerID    string    `gorm:"type:varchar(36)"            json:"reviewer_id"` // project user who submitted it
	State         string    `gorm:"type:varchar(30)"            json:"state"`
	Body          string    `gorm:"type:text"                   json:"body"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

func (PullRequestReview) TableName() string {
	return "git_pull_request_reviews"
}

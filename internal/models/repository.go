package models

import "time"

// Repository mirrors a provider repository visible to a project's connection.
type Repository struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)"                               json:"id"`
	ProjectID     string     `gorm:"not null;uniqueIndex:idx_repo_project_external,priority:1" json:"project_id"`
	Provider      string     `gorm:"not null;uniqueIndex:idx_repo_project_external,priority:2" json:"provider"`
	ExternalID    int64      `gorm:"not null;uniqueIndex:idx_repo_project_external,priority:3;index" json:"external_id"`
	ConnectionID  string     `gorm:"index"                                                     json:"connection_id"`
	Owner         string     `gorm:"not null"                                                  json:"owner"`
	Name          string     `gorm:"not null"                                                  json:"name"`
	FullName      string     `gorm:"not null"                                                  json:"full_name"`
	DefaultBranch string     `json:"default_branch"`
	Private       bool       `json:"private"`
	HTMLURL       string     `json:"html_url"`
	Selected      bool       `gorm:"not null;default:false"                                    json:"selected"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Repository) TableName() string {
	return "git_repositories"
}

// Branch mirrors a repository branch.
type Branch struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"                          json:"id"`
	RepositoryID string    `gorm:"not null;uniqueIndex:idx_branch_repo_name,priority:1" json:"repository_id"`
	Name         string    `gorm:"not null;uniqueIndex:idx_branch_repo_name,priority:2" json:"name"`
	HeadSHA      string    `gorm:"size:40"                                              json:"head_sha"`
	Protected    bool      `json:"protected"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Branch) TableName() string {
	return "git_branches"
}

// Commit mirrors a commit seen on a repository.
type Commit struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)"                         json:"id"`
	RepositoryID string     `gorm:"not null;uniqueIndex:idx_commit_repo_sha,priority:1" json:"repository_id"`
	SHA          string     `gorm:"not null;size:40;uniqueIndex:idx_commit_repo_sha,priority:2" json:"sha"`
	Message      string     `gorm:"type:text"                                           json:"message"`
	AuthorName   string     `json:"author_name"`
	AuthorEmail  string     `json:"author_email"`
	AuthorLogin  string     `json:"author_login"`
	HTMLURL      string     `json:"html_url"`
	CommittedAt  *time.Time `json:"committed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (Commit) TableName() string {
	return "git_commits"
}

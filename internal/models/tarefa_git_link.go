package models

import "time"

// LinkType names the git entity a tarefa is linked to.
type LinkType string

const (
	LinkBranch      LinkType = "branch"
	LinkCommit      LinkType = "commit"
	LinkPullRequest LinkType = "pull_request"
)

// LinkSource records whether a link was detected or created by hand.
type LinkSource string

const (
	LinkSourceAuto   LinkSource = "auto"
	LinkSourceManual LinkSource = "manual"
)

// ProvenanceMaxLen bounds the source-text excerpt stored with a link.
const ProvenanceMaxLen = 200

// TarefaGitLink associates a tarefa with a branch, commit or pull request.
// Optional fields are pointers so that "absent" is distinguishable from "".
type TarefaGitLink struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)"              json:"id"`
	TarefaID     string     `gorm:"not null;index:idx_link_dedup,priority:1" json:"tarefa_id"`
	ProjectID    string     `gorm:"not null;index"                           json:"project_id"`
	Provider     string     `gorm:"not null;index:idx_link_dedup,priority:2" json:"provider"`
	RepositoryID *string    `gorm:"index"                                    json:"repository_id,omitempty"`
	BranchName   *string    `gorm:"index:idx_link_dedup,priority:3"          json:"branch_name,omitempty"`
	CommitSHA    *string    `gorm:"index:idx_link_dedup,priority:4"          json:"commit_sha,omitempty"`
	PRNumber     *int       `gorm:"index:idx_link_dedup,priority:5"          json:"pr_number,omitempty"`
	LinkType     LinkType   `gorm:"type:varchar(20);not null"                json:"link_type"`
	Source       LinkSource `gorm:"type:varchar(10);not null"                json:"source"`
	Provenance   string     `gorm:"type:varchar(200)"                        json:"provenance,omitempty"`
	CreatedBy    string     `gorm:"type:varchar(36)"                         json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (TarefaGitLink) TableName() string {
	return "tarefa_git_links"
}

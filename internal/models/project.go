package models

import "time"

// Role is a project member's role.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleTechLead  Role = "tech_lead"
	RoleDeveloper Role = "developer"
	RoleViewer    Role = "viewer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleTechLead, RoleDeveloper, RoleViewer:
		return true
	}
	return false
}

// Project is the tenant that git connections, repositories and tarefas belong to.
type Project struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"not null"`
	KeyPrefix string `gorm:"not null;default:'TSK'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Project) TableName() string {
	return "projects"
}

// ProjectMember grants a user a role inside a project.
type ProjectMember struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	ProjectID string `gorm:"not null;uniqueIndex:idx_member_project_user,priority:1"`
	UserID    string `gorm:"not null;uniqueIndex:idx_member_project_user,priority:2;index"`
	Role      Role   `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProjectMember) TableName() string {
	return "project_members"
}

// Tarefa is a project task, addressed by a key such as "TSK-123".
type Tarefa struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"                            json:"id"`
	ProjectID string    `gorm:"not null;uniqueIndex:idx_tarefa_project_key,priority:1" json:"project_id"`
	Key       string    `gorm:"not null;uniqueIndex:idx_tarefa_project_key,priority:2" json:"key"`
	Title     string    `gorm:"not null"                                               json:"title"`
	Status    string    `gorm:"type:varchar(30)"                                       json:"status"`
	CreatedAt time.Time `                                                              json:"created_at"`
	UpdatedAt time.Time `                                                              json:"updated_at"`
}

func (Tarefa) TableName() string {
	return "tarefas"
}

package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
)

// Capability is an action gated by project role.
type Capability string

const (
	CapConnectGit  Capability = "connect_git"
	CapCreatePR    Capability = "create_pr"
	CapReviewPR    Capability = "review_pr"
	CapMergePR     Capability = "merge_pr"
	CapManageLinks Capability = "manage_links"
	CapView        Capability = "view"
	CapViewAudit   Capability = "view_audit"
)

var capabilityRoles = map[Capability][]models.Role{
	CapConnectGit:  {models.RoleOwner, models.RoleAdmin, models.RoleTechLead},
	CapCreatePR:    {models.RoleOwner, models.RoleAdmin, models.RoleTechLead, models.RoleDeveloper},
	CapReviewPR:    {models.RoleOwner, models.RoleAdmin, models.RoleTechLead, models.RoleDeveloper},
	CapMergePR:     {models.RoleOwner, models.RoleAdmin, models.RoleTechLead},
	CapManageLinks: {models.RoleOwner, models.RoleAdmin, models.RoleTechLead, models.RoleDeveloper},
	CapView: {
		models.RoleOwner, models.RoleAdmin, models.RoleTechLead, models.RoleDeveloper, models.RoleViewer,
	},
	CapViewAudit: {models.RoleOwner, models.RoleAdmin},
}

// RoleAllows reports whether role grants capability.
func RoleAllows(role models.Role, capability Capability) bool {
	return slices.Contains(capabilityRoles[capability], role)
}

// PermissionService answers role and capability questions from the
// project membership table.
type PermissionService struct {
	store *store.Store
}

func NewPermissionService(s *store.Store) *PermissionService {
	return &PermissionService{store: s}
}

// RoleFor returns the user's role in the project, or ErrNotMember.
func (s *PermissionService) RoleFor(ctx context.Context, projectID, userID string) (models.Role, error) {
	if projectID == "" || userID == "" {
		return "", ErrNotMember
	}
	m, err := s.store.GetMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("failed to load membership: %w", err)
	}
	return m.Role, nil
}

// Can reports whether the user holds capability. Non-members simply can't.
func (s *PermissionService) Can(ctx context.Context, projectID, userID string, capability Capability) (bool, error) {
	role, err := s.RoleFor(ctx, projectID, userID)
	if errors.Is(err, ErrNotMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return RoleAllows(role, capability), nil
}

// Require returns nil when the user holds capability, ErrNotMember when they
// are not in the project, and a wrapped ErrForbidden otherwise.
func (s *PermissionService) Require(ctx context.Context, projectID, userID string, capability Capability) error {
	role, err := s.RoleFor(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !RoleAllows(role, capability) {
		return fmt.Errorf("%w: %s cannot %s", ErrForbidden, role, capability)
	}
	return nil
}

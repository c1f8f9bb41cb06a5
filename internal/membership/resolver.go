// Package membership resolves a user's effective role at each scope.
//
// Every lookup is an ordered list of strategies tried in sequence; the
// first strategy that yields a role wins. This keeps the fallback order
// (direct membership before team access, team access before anything
// organization-wide) explicit and independently testable.
package membership

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/loopwork/loopwork/internal/organization/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/loopwork/loopwork/internal/softdelete"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"gorm.io/gorm"
)

// Resolver answers "what role does this user hold at this scope?".
// It never decides whether that role is sufficient; that is the
// authorization gate's job.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// WithTx returns a resolver bound to the given transaction.
func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	return &Resolver{db: tx}
}

// strategy yields a role, or reports that it has nothing to say and the
// next strategy should be consulted.
type strategy func(ctx context.Context) (role.Role, bool, error)

func resolve(ctx context.Context, strategies ...strategy) (role.Role, bool, error) {
	for _, s := range strategies {
		got, ok, err := s(ctx)
		if err != nil {
			return "", false, err
		}
		if ok {
			return got, true, nil
		}
	}
	return "", false, nil
}

// OrganizationRole returns the user's role in the organization, if any.
// Organization membership has a single source of truth: the member
// record.
func (r *Resolver) OrganizationRole(ctx context.Context, orgID, userID snowflake.ID) (role.Role, bool, error) {
	if userID == 0 {
		return "", false, nil
	}
	return resolve(ctx, r.orgMemberRecord(orgID, userID))
}

// WorkspaceRole returns the user's effective workspace role. A direct
// member record wins; otherwise organization admins and owners
// implicitly administer every workspace in their organization.
func (r *Resolver) WorkspaceRole(ctx context.Context, workspaceID, userID snowflake.ID) (role.Role, bool, error) {
	if userID == 0 {
		return "", false, nil
	}
	return resolve(ctx,
		r.workspaceMemberRecord(workspaceID, userID),
		r.workspaceOrgAdminFallback(workspaceID, userID),
	)
}

// TeamRole returns the user's role in the team, if any.
func (r *Resolver) TeamRole(ctx context.Context, teamID, userID snowflake.ID) (role.Role, bool, error) {
	if userID == 0 {
		return "", false, nil
	}
	return resolve(ctx, r.teamMemberRecord(teamID, userID))
}

// ProjectRole returns the user's effective project role. Strategies in
// order: ownership, direct member record, owning-team membership,
// shared-team membership. Organization role deliberately grants no
// project role; project write access is membership-gated.
func (r *Resolver) ProjectRole(ctx context.Context, project *projectdomain.Project, userID snowflake.ID) (role.Role, bool, error) {
	if project == nil || userID == 0 {
		return "", false, nil
	}
	return resolve(ctx,
		r.projectOwnership(project, userID),
		r.projectMemberRecord(project.ID, userID),
		r.projectOwningTeam(project, userID),
		r.projectSharedTeams(project, userID),
	)
}

// ProjectRoleByID loads the project and resolves the role against it.
func (r *Resolver) ProjectRoleByID(ctx context.Context, projectID, userID snowflake.ID) (role.Role, bool, error) {
	project, err := r.loadProject(ctx, projectID)
	if err != nil {
		return "", false, err
	}
	if project == nil {
		return "", false, nil
	}
	return r.ProjectRole(ctx, project, userID)
}

// ProjectReadable reports whether the user may read the project record.
// Members read through their role; organization-visible projects
// (IsPublic) are additionally readable by any member of the owning
// organization. Visibility never implies write access.
func (r *Resolver) ProjectReadable(ctx context.Context, project *projectdomain.Project, userID snowflake.ID) (bool, error) {
	if project == nil {
		return false, nil
	}
	if _, ok, err := r.ProjectRole(ctx, project, userID); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	if !project.IsPublic {
		return false, nil
	}
	_, isOrgMember, err := r.OrganizationRole(ctx, project.OrgID, userID)
	if err != nil {
		return false, err
	}
	return isOrgMember, nil
}

func (r *Resolver) orgMemberRecord(orgID, userID snowflake.ID) strategy {
	return func(ctx context.Context) (role.Role, bool, error) {
		var member orgdomain.OrganizationMember
		err := r.db.WithContext(ctx).
			Where("org_id = ? AND user_id = ?", orgID, userID).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return role.Role(member.Role), true, nil
	}
}

func (r *Resolver) workspaceMemberRecord(workspaceID, userID snowflake.ID) strategy {
	return func(ctx context.Context) (role.Role, bool, error) {
		var member workspacedomain.WorkspaceMember
		err := r.db.WithContext(ctx).
			Scopes(softdelete.NotDeleted).
			Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return role.Role(member.Role), true, nil
	}
}

func (r *Resolver) workspaceOrgAdminFallback(workspaceID, userID snowflake.ID) strategy {
	return func(ctx context.Context) (role.Role, bool, error) {
		var ws workspacedomain.Workspace
		err := r.db.WithContext(ctx).Where("id = ?", workspaceID).First(&ws).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		orgRole, ok, err := r.OrganizationRole(ctx, ws.OrgID, userID)
		if err != nil {
			return "", false, err
		}
		if ok && role.Satisfies(role.ScopeOrganization, orgRole, role.OrgAdmin) {
			return role.WorkspaceAdmin, true, nil
		}
		return "", false, nil
	}
}

func (r *Resolver) teamMemberRecord(teamID, userID snowflake.ID) strategy {
	return func(ctx context.Context) (role.Role, bool, error) {
		var member teamdomain.TeamMember
		err := r.db.WithContext(ctx).
			Where("team_id = ? AND user_id = ?", teamID, userID).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return role.Role(member.Role), true, nil
	}
}

func (r *Resolver) projectOwnership(project *projectdomain.Project, userID snowflake.ID) strategy {
	return func(ctx context.Context) (role.Role, bool, error) {
		if project.OwnerID == userID || project.CreatedBy == userID {
			return role.ProjectAdmin, true, nil
		}
		return "", false, nil
	}
}

func (r *Resolver) projectMemberRecord(projectID, userID snowflake.ID) strategy {
	return func(ctx context.Context) (role.Role, bool, error) {
		var member projectdomain.ProjectMember
		err := r.db.WithContext(ctx).
			Scopes(softdelete.NotDeleted).
			Where("project_id = ? AND user_id = ?", projectID, userID).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return role.Role(member.Role), true, nil
	}
}

// projectOwningTeam maps membership of the owning team onto project
// roles: the team lead administers the project, other team members can
// edit it.
func (r *Resolver) projectOwningTeam(project *projectdomain.Project, userID snowflake.ID) strategy {
	return func(ctx context.Context) (role.Role, bool, error) {
		if project.TeamID == nil {
			return "", false, nil
		}
		teamRole, ok, err := r.TeamRole(ctx, *project.TeamID, userID)
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", false, nil
		}
		if teamRole == role.TeamLead {
			return role.ProjectAdmin, true, nil
		}
		return role.ProjectEditor, true, nil
	}
}

// projectSharedTeams grants read-only access through teams the project
// was shared with.
func (r *Resolver) projectSharedTeams(project *projectdomain.Project, userID snowflake.ID) strategy {
	return func(ctx context.Context) (role.Role, bool, error) {
		for _, teamID := range project.SharedWithTeamIDs {
			_, ok, err := r.TeamRole(ctx, teamID, userID)
			if err != nil {
				return "", false, err
			}
			if ok {
				return role.ProjectViewer, true, nil
			}
		}
		return "", false, nil
	}
}

func (r *Resolver) loadProject(ctx context.Context, projectID snowflake.ID) (*projectdomain.Project, error) {
	var project projectdomain.Project
	err := r.db.WithContext(ctx).Where("id = ?", projectID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

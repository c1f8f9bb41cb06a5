// Package tenancy validates referential consistency across tenant
// boundaries. Every mutation that links entities from caller input runs
// these checks inside its transaction, so a concurrent move cannot slip
// a cross-tenant reference through.
package tenancy

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apperror"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	sprintdomain "github.com/loopwork/loopwork/internal/sprint/domain"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"gorm.io/gorm"
)

// Validator checks that a referenced entity belongs to the expected
// parent. Failures are validation errors with stable messages; they are
// raised regardless of the caller's role.
type Validator struct {
	db *gorm.DB
}

func NewValidator(db *gorm.DB) *Validator {
	return &Validator{db: db}
}

// WithTx returns a validator bound to the given transaction.
func (v *Validator) WithTx(tx *gorm.DB) *Validator {
	return &Validator{db: tx}
}

// ProjectInOrganization returns the project if it belongs to orgID.
func (v *Validator) ProjectInOrganization(ctx context.Context, projectID, orgID snowflake.ID) (*projectdomain.Project, error) {
	var project projectdomain.Project
	err := v.db.WithContext(ctx).Where("id = ?", projectID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("project", projectID.String())
	}
	if err != nil {
		return nil, err
	}
	if project.OrgID != orgID {
		return nil, apperror.Validation("projectId", "Project does not belong to the specified organization")
	}
	return &project, nil
}

// WorkspaceInOrganization returns the workspace if it belongs to orgID.
func (v *Validator) WorkspaceInOrganization(ctx context.Context, workspaceID, orgID snowflake.ID) (*workspacedomain.Workspace, error) {
	var ws workspacedomain.Workspace
	err := v.db.WithContext(ctx).Where("id = ?", workspaceID).First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("workspace", workspaceID.String())
	}
	if err != nil {
		return nil, err
	}
	if ws.OrgID != orgID {
		return nil, apperror.Validation("workspaceId", "Workspace does not belong to the specified organization")
	}
	return &ws, nil
}

// TeamInWorkspace returns the team if it belongs to workspaceID.
func (v *Validator) TeamInWorkspace(ctx context.Context, teamID, workspaceID snowflake.ID) (*teamdomain.Team, error) {
	var team teamdomain.Team
	err := v.db.WithContext(ctx).Where("id = ?", teamID).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("team", teamID.String())
	}
	if err != nil {
		return nil, err
	}
	if team.WorkspaceID != workspaceID {
		return nil, apperror.Validation("teamId", "Team does not belong to the specified workspace")
	}
	return &team, nil
}

// TeamInOrganization returns the team if it belongs to orgID.
func (v *Validator) TeamInOrganization(ctx context.Context, teamID, orgID snowflake.ID) (*teamdomain.Team, error) {
	var team teamdomain.Team
	err := v.db.WithContext(ctx).Where("id = ?", teamID).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("team", teamID.String())
	}
	if err != nil {
		return nil, err
	}
	if team.OrgID != orgID {
		return nil, apperror.Validation("teamId", "Team does not belong to the specified organization")
	}
	return &team, nil
}

// SprintInProject returns the sprint if it belongs to projectID.
func (v *Validator) SprintInProject(ctx context.Context, sprintID, projectID snowflake.ID) (*sprintdomain.Sprint, error) {
	var sprint sprintdomain.Sprint
	err := v.db.WithContext(ctx).Where("id = ?", sprintID).First(&sprint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("sprint", sprintID.String())
	}
	if err != nil {
		return nil, err
	}
	if sprint.ProjectID != projectID {
		return nil, apperror.Validation("sprintId", "Sprint does not belong to the specified project")
	}
	return &sprint, nil
}

// IssueInProject returns the issue if it belongs to projectID.
func (v *Validator) IssueInProject(ctx context.Context, issueID, projectID snowflake.ID) (*issuedomain.Issue, error) {
	var issue issuedomain.Issue
	err := v.db.WithContext(ctx).Where("id = ?", issueID).First(&issue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("issue", issueID.String())
	}
	if err != nil {
		return nil, err
	}
	if issue.ProjectID != projectID {
		return nil, apperror.Validation("issueId", "Issue does not belong to the specified project")
	}
	return &issue, nil
}

// Package authz is the authorization gate: it turns resolved roles and
// ownership facts into allow/deny decisions. Callers always pass the
// acting user explicitly; the gate never reads identity from ambient
// state.
package authz

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/membership"
	"github.com/loopwork/loopwork/internal/observability/metrics"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/role"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Resolver *membership.Resolver
	Metrics  *metrics.Metrics `optional:"true"`
}

// Gate composes the membership resolver, the casbin capability matrix
// and the ownership-override rules into a single decision surface.
type Gate struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	resolver *membership.Resolver
	metrics  *metrics.Metrics
}

func NewGate(p Params) *Gate {
	return &Gate{
		log:      p.Log.Named("authz.gate"),
		enforcer: p.Enforcer,
		resolver: p.Resolver,
		metrics:  p.Metrics,
	}
}

// Authorize checks an organization-scoped capability through casbin.
// The caller's org role becomes the casbin subject role inside the
// organization's domain.
func (g *Gate) Authorize(ctx context.Context, userID, orgID snowflake.ID, object, action string) error {
	if userID == 0 {
		return apperror.Unauthenticated()
	}

	orgRole, ok, err := g.resolver.OrganizationRole(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return g.deny(ctx, object, action, "")
	}

	subject := fmt.Sprintf("user:%s", userID.String())
	roleName := fmt.Sprintf("role:%s", orgRole)
	domain := fmt.Sprintf("org:%s", orgID.String())
	if err := g.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := g.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		return g.deny(ctx, object, action, "")
	}

	g.metrics.RecordAuthzDecision(ctx, object, action, true)
	return nil
}

// RequireOrganizationRole resolves and checks the caller's org role.
func (g *Gate) RequireOrganizationRole(ctx context.Context, userID, orgID snowflake.ID, required role.Role) (role.Role, error) {
	if userID == 0 {
		return "", apperror.Unauthenticated()
	}
	got, ok, err := g.resolver.OrganizationRole(ctx, orgID, userID)
	if err != nil {
		return "", err
	}
	if !ok || !role.Satisfies(role.ScopeOrganization, got, required) {
		return "", g.deny(ctx, ObjectOrganization, string(required), required)
	}
	g.metrics.RecordAuthzDecision(ctx, ObjectOrganization, string(required), true)
	return got, nil
}

// RequireWorkspaceRole resolves and checks the caller's workspace role,
// including the org-admin fallback.
func (g *Gate) RequireWorkspaceRole(ctx context.Context, userID, workspaceID snowflake.ID, required role.Role) (role.Role, error) {
	if userID == 0 {
		return "", apperror.Unauthenticated()
	}
	got, ok, err := g.resolver.WorkspaceRole(ctx, workspaceID, userID)
	if err != nil {
		return "", err
	}
	if !ok || !role.Satisfies(role.ScopeWorkspace, got, required) {
		return "", g.deny(ctx, ObjectWorkspace, string(required), required)
	}
	g.metrics.RecordAuthzDecision(ctx, ObjectWorkspace, string(required), true)
	return got, nil
}

// RequireTeamRole resolves and checks the caller's team role. Org
// admins and owners pass regardless of team membership.
func (g *Gate) RequireTeamRole(ctx context.Context, userID, teamID, orgID snowflake.ID, required role.Role) (role.Role, error) {
	if userID == 0 {
		return "", apperror.Unauthenticated()
	}
	got, ok, err := g.resolver.TeamRole(ctx, teamID, userID)
	if err != nil {
		return "", err
	}
	if ok && role.Satisfies(role.ScopeTeam, got, required) {
		g.metrics.RecordAuthzDecision(ctx, ObjectTeam, string(required), true)
		return got, nil
	}
	orgRole, orgOK, err := g.resolver.OrganizationRole(ctx, orgID, userID)
	if err != nil {
		return "", err
	}
	if orgOK && role.Satisfies(role.ScopeOrganization, orgRole, role.OrgAdmin) {
		g.metrics.RecordAuthzDecision(ctx, ObjectTeam, string(required), true)
		return role.TeamLead, nil
	}
	return "", g.deny(ctx, ObjectTeam, string(required), required)
}

// RequireProjectRole resolves and checks the caller's project role.
// Organization role deliberately does not count here.
func (g *Gate) RequireProjectRole(ctx context.Context, userID snowflake.ID, project *projectdomain.Project, required role.Role) (role.Role, error) {
	if userID == 0 {
		return "", apperror.Unauthenticated()
	}
	got, ok, err := g.resolver.ProjectRole(ctx, project, userID)
	if err != nil {
		return "", err
	}
	if !ok || !role.Satisfies(role.ScopeProject, got, required) {
		return "", g.deny(ctx, ObjectProject, string(required), required)
	}
	g.metrics.RecordAuthzDecision(ctx, ObjectProject, string(required), true)
	return got, nil
}

// CanReadProject reports read access without erroring; list queries use
// it to filter silently. userID may be zero for anonymous callers.
func (g *Gate) CanReadProject(ctx context.Context, userID snowflake.ID, project *projectdomain.Project) (bool, error) {
	return g.resolver.ProjectReadable(ctx, project, userID)
}

// RequireReadProject is the point-read variant: it errors instead of
// filtering.
func (g *Gate) RequireReadProject(ctx context.Context, userID snowflake.ID, project *projectdomain.Project) error {
	readable, err := g.CanReadProject(ctx, userID, project)
	if err != nil {
		return err
	}
	if !readable {
		if userID == 0 {
			return apperror.Unauthenticated()
		}
		return g.deny(ctx, ObjectProject, "read", role.ProjectViewer)
	}
	g.metrics.RecordAuthzDecision(ctx, ObjectProject, "read", true)
	return nil
}

// RequireProjectDeletion gates project delete/restore: the creator or
// owner may, OR anyone with organization admin-or-owner standing. The
// two checks are OR'd, never AND'd.
func (g *Gate) RequireProjectDeletion(ctx context.Context, userID snowflake.ID, project *projectdomain.Project) error {
	if userID == 0 {
		return apperror.Unauthenticated()
	}
	if project.OwnerID == userID || project.CreatedBy == userID {
		g.metrics.RecordAuthzDecision(ctx, ObjectProject, "delete", true)
		return nil
	}
	orgRole, ok, err := g.resolver.OrganizationRole(ctx, project.OrgID, userID)
	if err != nil {
		return err
	}
	if ok && role.Satisfies(role.ScopeOrganization, orgRole, role.OrgAdmin) {
		g.metrics.RecordAuthzDecision(ctx, ObjectProject, "delete", true)
		return nil
	}
	return g.deny(ctx, ObjectProject, "delete", role.OrgAdmin)
}

// RequireWorkspaceDeletion gates workspace deletion: the creator OR an
// organization admin-or-owner.
func (g *Gate) RequireWorkspaceDeletion(ctx context.Context, userID snowflake.ID, ws *workspacedomain.Workspace) error {
	if userID == 0 {
		return apperror.Unauthenticated()
	}
	if ws.CreatedBy == userID {
		g.metrics.RecordAuthzDecision(ctx, ObjectWorkspace, "delete", true)
		return nil
	}
	orgRole, ok, err := g.resolver.OrganizationRole(ctx, ws.OrgID, userID)
	if err != nil {
		return err
	}
	if ok && role.Satisfies(role.ScopeOrganization, orgRole, role.OrgAdmin) {
		g.metrics.RecordAuthzDecision(ctx, ObjectWorkspace, "delete", true)
		return nil
	}
	return g.deny(ctx, ObjectWorkspace, "delete", role.OrgAdmin)
}

func (g *Gate) ensureGrouping(subject, roleName, domain string) error {
	existing, err := g.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = g.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := g.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = g.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (g *Gate) deny(ctx context.Context, object, action string, required role.Role) error {
	g.metrics.RecordAuthzDecision(ctx, object, action, false)
	return apperror.Forbidden(string(required))
}

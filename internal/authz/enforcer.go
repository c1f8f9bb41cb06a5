package authz

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

// Objects the gate knows about.
const (
	ObjectOrganization = "organization"
	ObjectWorkspace    = "workspace"
	ObjectTeam         = "team"
	ObjectProject      = "project"
	ObjectDocument     = "document"
	ObjectAPIKey       = "api_key"
	ObjectNotification = "notification"
)

// Organization-scope actions. Project- and issue-level decisions are
// resolved through membership cascades, not the capability matrix.
const (
	ActionOrganizationView    = "organization.view"
	ActionOrganizationUpdate  = "organization.update"
	ActionOrganizationDelete  = "organization.delete"
	ActionOrganizationInvite  = "organization.invite"
	ActionMemberManage        = "organization.member_manage"
	ActionWorkspaceCreate     = "workspace.create"
	ActionWorkspaceView       = "workspace.view"
	ActionTeamCreate          = "team.create"
	ActionTeamView            = "team.view"
	ActionProjectCreate       = "project.create"
	ActionDocumentView        = "document.view"
	ActionDocumentCreate      = "document.create"
	ActionAPIKeyView          = "api_key.view"
	ActionAPIKeyCreate        = "api_key.create"
	ActionAPIKeyRevoke        = "api_key.revoke"
	ActionNotificationView    = "notification.view"
)

// NewEnforcer builds the synced casbin enforcer backed by the main
// database and seeds the per-role capability matrix.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Member permissions (read plus scoped creation)
		{"role:member", "*", ObjectOrganization, ActionOrganizationView},
		{"role:member", "*", ObjectWorkspace, ActionWorkspaceView},
		{"role:member", "*", ObjectTeam, ActionTeamView},
		{"role:member", "*", ObjectProject, ActionProjectCreate},
		{"role:member", "*", ObjectDocument, ActionDocumentView},
		{"role:member", "*", ObjectDocument, ActionDocumentCreate},
		{"role:member", "*", ObjectAPIKey, ActionAPIKeyView},
		{"role:member", "*", ObjectAPIKey, ActionAPIKeyCreate},
		{"role:member", "*", ObjectAPIKey, ActionAPIKeyRevoke},
		{"role:member", "*", ObjectNotification, ActionNotificationView},

		// Admin permissions
		{"role:admin", "*", ObjectOrganization, ActionOrganizationView},
		{"role:admin", "*", ObjectOrganization, ActionOrganizationUpdate},
		{"role:admin", "*", ObjectOrganization, ActionOrganizationInvite},
		{"role:admin", "*", ObjectOrganization, ActionMemberManage},
		{"role:admin", "*", ObjectWorkspace, ActionWorkspaceView},
		{"role:admin", "*", ObjectWorkspace, ActionWorkspaceCreate},
		{"role:admin", "*", ObjectTeam, ActionTeamView},
		{"role:admin", "*", ObjectTeam, ActionTeamCreate},
		{"role:admin", "*", ObjectProject, ActionProjectCreate},
		{"role:admin", "*", ObjectDocument, ActionDocumentView},
		{"role:admin", "*", ObjectDocument, ActionDocumentCreate},
		{"role:admin", "*", ObjectAPIKey, ActionAPIKeyView},
		{"role:admin", "*", ObjectAPIKey, ActionAPIKeyCreate},
		{"role:admin", "*", ObjectAPIKey, ActionAPIKeyRevoke},
		{"role:admin", "*", ObjectNotification, ActionNotificationView},

		// Owner permissions (admin set plus organization deletion)
		{"role:owner", "*", ObjectOrganization, ActionOrganizationView},
		{"role:owner", "*", ObjectOrganization, ActionOrganizationUpdate},
		{"role:owner", "*", ObjectOrganization, ActionOrganizationDelete},
		{"role:owner", "*", ObjectOrganization, ActionOrganizationInvite},
		{"role:owner", "*", ObjectOrganization, ActionMemberManage},
		{"role:owner", "*", ObjectWorkspace, ActionWorkspaceView},
		{"role:owner", "*", ObjectWorkspace, ActionWorkspaceCreate},
		{"role:owner", "*", ObjectTeam, ActionTeamView},
		{"role:owner", "*", ObjectTeam, ActionTeamCreate},
		{"role:owner", "*", ObjectProject, ActionProjectCreate},
		{"role:owner", "*", ObjectDocument, ActionDocumentView},
		{"role:owner", "*", ObjectDocument, ActionDocumentCreate},
		{"role:owner", "*", ObjectAPIKey, ActionAPIKeyView},
		{"role:owner", "*", ObjectAPIKey, ActionAPIKeyCreate},
		{"role:owner", "*", ObjectAPIKey, ActionAPIKeyRevoke},
		{"role:owner", "*", ObjectNotification, ActionNotificationView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

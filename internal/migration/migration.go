// Package migration creates the schema on startup so local and
// self-hosted installs are usable out of the box.
package migration

import (
	apikeydomain "github.com/loopwork/loopwork/internal/apikey/domain"
	authdomain "github.com/loopwork/loopwork/internal/auth/domain"
	customfielddomain "github.com/loopwork/loopwork/internal/customfield/domain"
	documentdomain "github.com/loopwork/loopwork/internal/document/domain"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
	notifdomain "github.com/loopwork/loopwork/internal/notification/domain"
	orgdomain "github.com/loopwork/loopwork/internal/organization/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	sprintdomain "github.com/loopwork/loopwork/internal/sprint/domain"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	timeentrydomain "github.com/loopwork/loopwork/internal/timeentry/domain"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"gorm.io/gorm"
)

// Run migrates every persistent model. Ordering follows the tenancy
// hierarchy so foreign-key creation never races its parent table.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&orgdomain.OrganizationInvite{},
		&workspacedomain.Workspace{},
		&workspacedomain.WorkspaceMember{},
		&teamdomain.Team{},
		&teamdomain.TeamMember{},
		&projectdomain.Project{},
		&projectdomain.ProjectMember{},
		&sprintdomain.Sprint{},
		&issuedomain.Issue{},
		&documentdomain.Document{},
		&timeentrydomain.TimeEntry{},
		&customfielddomain.CustomField{},
		&customfielddomain.CustomFieldValue{},
		&apikeydomain.APIKey{},
		&notifdomain.OutboxEvent{},
		&notifdomain.Notification{},
	)
}

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apikey"
	"github.com/loopwork/loopwork/internal/auth"
	"github.com/loopwork/loopwork/internal/auth/session"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/cleanup"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/config"
	"github.com/loopwork/loopwork/internal/customfield"
	"github.com/loopwork/loopwork/internal/document"
	"github.com/loopwork/loopwork/internal/issue"
	"github.com/loopwork/loopwork/internal/membership"
	"github.com/loopwork/loopwork/internal/migration"
	"github.com/loopwork/loopwork/internal/notification"
	"github.com/loopwork/loopwork/internal/observability"
	"github.com/loopwork/loopwork/internal/organization"
	"github.com/loopwork/loopwork/internal/project"
	"github.com/loopwork/loopwork/internal/server"
	"github.com/loopwork/loopwork/internal/sprint"
	"github.com/loopwork/loopwork/internal/team"
	"github.com/loopwork/loopwork/internal/tenancy"
	"github.com/loopwork/loopwork/internal/timeentry"
	"github.com/loopwork/loopwork/internal/workspace"
	"github.com/loopwork/loopwork/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure.
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,

		// Authorization core.
		membership.Module,
		tenancy.Module,
		authz.Module,

		// Feature domains.
		auth.Module,
		session.Module,
		organization.Module,
		workspace.Module,
		team.Module,
		project.Module,
		issue.Module,
		sprint.Module,
		document.Module,
		timeentry.Module,
		customfield.Module,
		apikey.Module,
		notification.Module,
		cleanup.Module,

		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

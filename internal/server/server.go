package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	apikeydomain "github.com/loopwork/loopwork/internal/apikey/domain"
	authdomain "github.com/loopwork/loopwork/internal/auth/domain"
	"github.com/loopwork/loopwork/internal/auth/session"
	"github.com/loopwork/loopwork/internal/config"
	customfielddomain "github.com/loopwork/loopwork/internal/customfield/domain"
	documentdomain "github.com/loopwork/loopwork/internal/document/domain"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
	notifservice "github.com/loopwork/loopwork/internal/notification/service"
	"github.com/loopwork/loopwork/internal/observability"
	obslogger "github.com/loopwork/loopwork/internal/observability/logger"
	obsmetrics "github.com/loopwork/loopwork/internal/observability/metrics"
	obstracing "github.com/loopwork/loopwork/internal/observability/tracing"
	organizationdomain "github.com/loopwork/loopwork/internal/organization/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	sprintdomain "github.com/loopwork/loopwork/internal/sprint/domain"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	timeentrydomain "github.com/loopwork/loopwork/internal/timeentry/domain"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	db       *gorm.DB
	sessions *session.Manager
	genID    *snowflake.Node

	authSvc         authdomain.Service
	organizationSvc organizationdomain.Service
	workspaceSvc    workspacedomain.Service
	teamSvc         teamdomain.Service
	projectSvc      projectdomain.Service
	issueSvc        issuedomain.Service
	sprintSvc       sprintdomain.Service
	documentSvc     documentdomain.Service
	timeEntrySvc    timeentrydomain.Service
	customFieldSvc  customfielddomain.Service
	apiKeySvc       apikeydomain.Service
	notificationSvc *notifservice.Service
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	DB       *gorm.DB
	Sessions *session.Manager
	GenID    *snowflake.Node

	AuthSvc         authdomain.Service
	OrganizationSvc organizationdomain.Service
	WorkspaceSvc    workspacedomain.Service
	TeamSvc         teamdomain.Service
	ProjectSvc      projectdomain.Service
	IssueSvc        issuedomain.Service
	SprintSvc       sprintdomain.Service
	DocumentSvc     documentdomain.Service
	TimeEntrySvc    timeentrydomain.Service
	CustomFieldSvc  customfielddomain.Service
	APIKeySvc       apikeydomain.Service
	NotificationSvc *notifservice.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		sessions:        p.Sessions,
		genID:           p.GenID,
		authSvc:         p.AuthSvc,
		organizationSvc: p.OrganizationSvc,
		workspaceSvc:    p.WorkspaceSvc,
		teamSvc:         p.TeamSvc,
		projectSvc:      p.ProjectSvc,
		issueSvc:        p.IssueSvc,
		sprintSvc:       p.SprintSvc,
		documentSvc:     p.DocumentSvc,
		timeEntrySvc:    p.TimeEntrySvc,
		customFieldSvc:  p.CustomFieldSvc,
		apiKeySvc:       p.APIKeySvc,
		notificationSvc: p.NotificationSvc,
	}

	s.registerAuthRoutes()
	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Organizations --------
	api.POST("/orgs", s.CreateOrganization)
	api.GET("/orgs", s.ListOrganizations)
	api.GET("/orgs/:orgId", s.GetOrganization)
	api.PATCH("/orgs/:orgId", s.UpdateOrganization)
	api.GET("/orgs/:orgId/members", s.ListOrganizationMembers)
	api.POST("/orgs/:orgId/members", s.AddOrganizationMember)
	api.PATCH("/orgs/:orgId/members/:userId", s.UpdateOrganizationMemberRole)
	api.DELETE("/orgs/:orgId/members/:userId", s.RemoveOrganizationMember)
	api.POST("/orgs/:orgId/invites", s.InviteOrganizationMembers)
	api.POST("/invites/:inviteId/accept", s.AcceptOrganizationInvite)

	// -------- Workspaces --------
	api.POST("/orgs/:orgId/workspaces", s.CreateWorkspace)
	api.GET("/orgs/:orgId/workspaces", s.ListWorkspaces)
	api.GET("/workspaces/:workspaceId", s.GetWorkspace)
	api.PATCH("/workspaces/:workspaceId", s.UpdateWorkspace)
	api.DELETE("/workspaces/:workspaceId", s.DeleteWorkspace)
	api.GET("/workspaces/:workspaceId/members", s.ListWorkspaceMembers)
	api.POST("/workspaces/:workspaceId/members", s.AddWorkspaceMember)
	api.DELETE("/workspaces/:workspaceId/members/:userId", s.RemoveWorkspaceMember)

	// -------- Teams --------
	api.POST("/orgs/:orgId/workspaces/:workspaceId/teams", s.CreateTeam)
	api.GET("/workspaces/:workspaceId/teams", s.ListTeams)
	api.GET("/teams/:teamId", s.GetTeam)
	api.PATCH("/teams/:teamId", s.UpdateTeam)
	api.DELETE("/teams/:teamId", s.DeleteTeam)
	api.GET("/teams/:teamId/members", s.ListTeamMembers)
	api.POST("/teams/:teamId/members", s.AddTeamMember)
	api.PATCH("/teams/:teamId/members/:userId", s.UpdateTeamMemberRole)
	api.DELETE("/teams/:teamId/members/:userId", s.RemoveTeamMember)

	// -------- Projects --------
	api.POST("/orgs/:orgId/workspaces/:workspaceId/projects", s.CreateProject)
	api.GET("/orgs/:orgId/projects", s.ListProjects)
	api.GET("/projects/:projectId", s.GetProject)
	api.PATCH("/projects/:projectId", s.UpdateProject)
	api.DELETE("/projects/:projectId", s.SoftDeleteProject)
	api.POST("/projects/:projectId/restore", s.RestoreProject)
	api.GET("/projects/:projectId/members", s.ListProjectMembers)
	api.POST("/projects/:projectId/members", s.AddProjectMember)
	api.PATCH("/projects/:projectId/members/:userId", s.UpdateProjectMemberRole)
	api.DELETE("/projects/:projectId/members/:userId", s.RemoveProjectMember)

	// -------- Issues --------
	api.POST("/projects/:projectId/issues", s.CreateIssue)
	api.GET("/projects/:projectId/issues", s.ListIssues)
	api.GET("/issues/:issueId", s.GetIssue)
	api.PATCH("/issues/:issueId", s.UpdateIssue)
	api.DELETE("/issues/:issueId", s.SoftDeleteIssue)
	api.POST("/issues/:issueId/restore", s.RestoreIssue)
	api.POST("/issues/:issueId/move", s.MoveIssue)

	// Bulk operations live under their own prefix so the item routes
	// keep a single path parameter.
	api.POST("/bulk/issues/status", s.BulkUpdateIssueStatus)
	api.POST("/bulk/issues/assign", s.BulkAssignIssues)
	api.POST("/bulk/issues/labels", s.BulkAddIssueLabels)
	api.POST("/bulk/issues/delete", s.BulkDeleteIssues)

	// -------- Sprints --------
	api.POST("/projects/:projectId/sprints", s.CreateSprint)
	api.GET("/projects/:projectId/sprints", s.ListSprints)
	api.GET("/sprints/:sprintId", s.GetSprint)
	api.PATCH("/sprints/:sprintId", s.UpdateSprint)
	api.POST("/sprints/:sprintId/start", s.StartSprint)
	api.POST("/sprints/:sprintId/complete", s.CompleteSprint)
	api.GET("/sprints/:sprintId/burndown", s.SprintBurndown)

	// -------- Documents --------
	api.POST("/orgs/:orgId/documents", s.CreateDocument)
	api.GET("/orgs/:orgId/documents", s.ListDocuments)
	api.GET("/documents/:documentId", s.GetDocument)
	api.PATCH("/documents/:documentId", s.UpdateDocument)
	api.POST("/documents/:documentId/toggle-public", s.TogglePublicDocument)
	api.DELETE("/documents/:documentId", s.SoftDeleteDocument)
	api.POST("/documents/:documentId/restore", s.RestoreDocument)

	// -------- Time entries --------
	api.POST("/issues/:issueId/time-entries", s.CreateTimeEntry)
	api.GET("/issues/:issueId/time-entries", s.ListTimeEntries)
	api.DELETE("/time-entries/:entryId", s.SoftDeleteTimeEntry)

	// -------- Custom fields --------
	api.POST("/projects/:projectId/fields", s.CreateCustomField)
	api.GET("/projects/:projectId/fields", s.ListCustomFields)
	api.PATCH("/fields/:fieldId", s.UpdateCustomField)
	api.DELETE("/fields/:fieldId", s.SoftDeleteCustomField)
	api.PUT("/issues/:issueId/fields/:fieldId", s.SetCustomFieldValue)
	api.GET("/issues/:issueId/fields", s.ListCustomFieldValues)

	// -------- API keys --------
	api.GET("/orgs/:orgId/api-keys", s.ListAPIKeys)
	api.POST("/orgs/:orgId/api-keys", s.CreateAPIKey)
	api.POST("/api-keys/:keyId/rotate", s.RotateAPIKey)
	api.POST("/api-keys/:keyId/revoke", s.RevokeAPIKey)

	// -------- Notifications --------
	api.GET("/notifications", s.ListNotifications)
	api.POST("/notifications/:notificationId/read", s.MarkNotificationRead)
	api.POST("/notifications/read-all", s.MarkAllNotificationsRead)
}

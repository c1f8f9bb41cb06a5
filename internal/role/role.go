// Package role defines the role vocabulary per scope and the strength
// ordering between roles. Satisfies is the single comparison primitive
// used by the authorization gate; it is pure and side-effect free.
package role

type Scope string

const (
	ScopeOrganization Scope = "organization"
	ScopeWorkspace    Scope = "workspace"
	ScopeTeam         Scope = "team"
	ScopeProject      Scope = "project"
)

type Role string

const (
	// Organization scope: owner > admin > member.
	OrgOwner  Role = "owner"
	OrgAdmin  Role = "admin"
	OrgMember Role = "member"

	// Workspace scope: admin > member.
	WorkspaceAdmin  Role = "admin"
	WorkspaceMember Role = "member"

	// Team scope: lead > member.
	TeamLead   Role = "lead"
	TeamMember Role = "member"

	// Project scope: admin > editor > viewer.
	ProjectAdmin  Role = "admin"
	ProjectEditor Role = "editor"
	ProjectViewer Role = "viewer"
)

var ranks = map[Scope]map[Role]int{
	ScopeOrganization: {OrgMember: 1, OrgAdmin: 2, OrgOwner: 3},
	ScopeWorkspace:    {WorkspaceMember: 1, WorkspaceAdmin: 2},
	ScopeTeam:         {TeamMember: 1, TeamLead: 2},
	ScopeProject:      {ProjectViewer: 1, ProjectEditor: 2, ProjectAdmin: 3},
}

// Satisfies reports whether actual is at least as strong as required
// within the given scope. An empty or unknown actual role never
// satisfies anything.
func Satisfies(scope Scope, actual, required Role) bool {
	order, ok := ranks[scope]
	if !ok {
		return false
	}
	actualRank, ok := order[actual]
	if !ok {
		return false
	}
	requiredRank, ok := order[required]
	if !ok {
		return false
	}
	return actualRank >= requiredRank
}

// Valid reports whether r is a known role within scope.
func Valid(scope Scope, r Role) bool {
	order, ok := ranks[scope]
	if !ok {
		return false
	}
	_, ok = order[r]
	return ok
}

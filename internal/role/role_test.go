package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSatisfiesOrganizationOrdering(t *testing.T) {
	assert.True(t, Satisfies(ScopeOrganization, OrgOwner, OrgMember))
	assert.True(t, Satisfies(ScopeOrganization, OrgOwner, OrgAdmin))
	assert.True(t, Satisfies(ScopeOrganization, OrgOwner, OrgOwner))
	assert.True(t, Satisfies(ScopeOrganization, OrgAdmin, OrgMember))
	assert.True(t, Satisfies(ScopeOrganization, OrgAdmin, OrgAdmin))
	assert.False(t, Satisfies(ScopeOrganization, OrgAdmin, OrgOwner))
	assert.False(t, Satisfies(ScopeOrganization, OrgMember, OrgAdmin))
	assert.False(t, Satisfies(ScopeOrganization, OrgMember, OrgOwner))
}

func TestSatisfiesProjectOrdering(t *testing.T) {
	assert.True(t, Satisfies(ScopeProject, ProjectAdmin, ProjectViewer))
	assert.True(t, Satisfies(ScopeProject, ProjectEditor, ProjectViewer))
	assert.True(t, Satisfies(ScopeProject, ProjectEditor, ProjectEditor))
	assert.False(t, Satisfies(ScopeProject, ProjectViewer, ProjectEditor))
	assert.False(t, Satisfies(ScopeProject, ProjectEditor, ProjectAdmin))
}

func TestSatisfiesNoRole(t *testing.T) {
	assert.False(t, Satisfies(ScopeOrganization, "", OrgMember))
	assert.False(t, Satisfies(ScopeProject, "", ProjectViewer))
	assert.False(t, Satisfies(ScopeProject, Role("superuser"), ProjectViewer))
	assert.False(t, Satisfies(Scope("unknown"), OrgOwner, OrgMember))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(ScopeOrganization, OrgOwner))
	assert.True(t, Valid(ScopeProject, ProjectEditor))
	assert.False(t, Valid(ScopeWorkspace, ProjectViewer))
	assert.False(t, Valid(ScopeOrganization, Role("root")))
}

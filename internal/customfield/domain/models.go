// Package domain contains persistence models for the custom-field service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/softdelete"
	"gorm.io/datatypes"
)

// FieldType classifies what values a custom field accepts.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeNumber      FieldType = "number"
	TypeDate        FieldType = "date"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeCheckbox    FieldType = "checkbox"
	TypeURL         FieldType = "url"
)

// Selectable reports whether the type draws values from Options.
func (t FieldType) Selectable() bool {
	return t == TypeSelect || t == TypeMultiselect
}

// CustomField is a project-scoped field definition applied to issues.
type CustomField struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	ProjectID snowflake.ID `gorm:"column:project_id;not null;index" json:"project_id"`

	Name     string                      `gorm:"size:255;not null" json:"name"`
	Type     FieldType                   `gorm:"size:32;not null" json:"type"`
	Options  datatypes.JSONSlice[string] `json:"options,omitempty"`
	Required bool                        `json:"required"`
	Position int                         `json:"position"`

	CreatedBy snowflake.ID `gorm:"column:created_by;not null" json:"created_by"`

	softdelete.Deletable `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CustomField) TableName() string { return "custom_fields" }

// HasOption reports whether v is one of a select field's options.
func (f *CustomField) HasOption(v string) bool {
	for _, o := range f.Options {
		if o == v {
			return true
		}
	}
	return false
}

// CustomFieldValue holds one issue's value for one custom field.
// Values are stored as strings and validated against the field type
// on write.
type CustomFieldValue struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	FieldID   snowflake.ID `gorm:"column:field_id;not null;uniqueIndex:ux_custom_field_values_field_issue" json:"field_id"`
	IssueID   snowflake.ID `gorm:"column:issue_id;not null;uniqueIndex:ux_custom_field_values_field_issue;index" json:"issue_id"`
	ProjectID snowflake.ID `gorm:"column:project_id;not null;index" json:"project_id"`

	Value string `gorm:"type:text" json:"value"`

	softdelete.Deletable `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CustomFieldValue) TableName() string { return "custom_field_values" }

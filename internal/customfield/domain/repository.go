package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateField(ctx context.Context, field *CustomField) error
	GetField(ctx context.Context, id snowflake.ID) (*CustomField, error)
	ListFieldsByProject(ctx context.Context, projectID snowflake.ID) ([]CustomField, error)
	UpdateFieldFields(ctx context.Context, id snowflake.ID, fields map[string]any) error

	CreateValue(ctx context.Context, value *CustomFieldValue) error
	GetValue(ctx context.Context, fieldID, issueID snowflake.ID) (*CustomFieldValue, error)
	UpdateValueFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	ListValuesByIssue(ctx context.Context, issueID snowflake.ID) ([]CustomFieldValue, error)
}

type Service interface {
	CreateField(ctx context.Context, userID, projectID snowflake.ID, req CreateFieldRequest) (*CustomField, error)
	ListFields(ctx context.Context, userID, projectID snowflake.ID) ([]CustomField, error)
	UpdateField(ctx context.Context, userID, fieldID snowflake.ID, req UpdateFieldRequest) (*CustomField, error)
	SoftDeleteField(ctx context.Context, userID, fieldID snowflake.ID) error

	SetValue(ctx context.Context, userID, issueID, fieldID snowflake.ID, value string) (*CustomFieldValue, error)
	ListValues(ctx context.Context, userID, issueID snowflake.ID) ([]CustomFieldValue, error)
}

type CreateFieldRequest struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Options  []string  `json:"options,omitempty"`
	Required bool      `json:"required"`
	Position int       `json:"position"`
}

type UpdateFieldRequest struct {
	Name     *string  `json:"name,omitempty"`
	Options  []string `json:"options,omitempty"`
	Required *bool    `json:"required,omitempty"`
	Position *int     `json:"position,omitempty"`
}

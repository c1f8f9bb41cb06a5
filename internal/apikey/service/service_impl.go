package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apikey/domain"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/loopwork/loopwork/internal/tenancy"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// rawKeyPrefix marks raw secrets so leaked keys are recognizable
	// in scanners and logs.
	rawKeyPrefix = "lw_key_"

	// rotationGrace is how long a rotated key keeps authenticating so
	// deployed clients can pick up the replacement.
	rotationGrace = 24 * time.Hour

	displayPrefixLen = 12
)

var defaultScopes = []string{domain.ScopeRead}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Gate      *authz.Gate
	Validator *tenancy.Validator
	GenID     *snowflake.Node
	Clock     clock.Clock
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	gate      *authz.Gate
	validator *tenancy.Validator
	genID     *snowflake.Node
	clock     clock.Clock
}

func NewService(p Params) domain.Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("apikey.service"),
		repo:      p.Repo,
		gate:      p.Gate,
		validator: p.Validator,
		genID:     p.GenID,
		clock:     p.Clock,
	}
}

func (s *service) Create(ctx context.Context, userID, orgID snowflake.ID, req domain.CreateRequest) (*domain.APIKey, string, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectAPIKey, authz.ActionAPIKeyCreate); err != nil {
		return nil, "", err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, "", apperror.Validation("name", "Name is required")
	}
	now := s.clock.Now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, "", apperror.Validation("expires_at", "Expiry must be in the future")
	}

	// A project-pinned key must reference a project inside the same
	// organization, and one the caller can actually read.
	if req.ProjectID != nil {
		project, err := s.validator.ProjectInOrganization(ctx, *req.ProjectID, orgID)
		if err != nil {
			return nil, "", err
		}
		if err := s.gate.RequireReadProject(ctx, userID, project); err != nil {
			return nil, "", err
		}
	}

	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	raw, hash, prefix, err := mintSecret()
	if err != nil {
		return nil, "", err
	}
	key := &domain.APIKey{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		ProjectID: req.ProjectID,
		KeyID:     newKeyID(),
		Name:      name,
		Prefix:    prefix,
		KeyHash:   hash,
		Scopes:    datatypes.NewJSONSlice(scopes),
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, "", err
	}

	s.log.Info("api key created",
		zap.String("key_id", key.KeyID),
		zap.String("org_id", orgID.String()),
		zap.String("user_id", userID.String()))
	return key, raw, nil
}

func (s *service) List(ctx context.Context, userID, orgID snowflake.ID) ([]domain.APIKey, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectAPIKey, authz.ActionAPIKeyView); err != nil {
		return nil, err
	}
	// Keys are personal credentials: members only ever see their own.
	return s.repo.ListByUser(ctx, orgID, userID)
}

func (s *service) Rotate(ctx context.Context, userID snowflake.ID, keyID string) (*domain.APIKey, string, error) {
	if userID == 0 {
		return nil, "", apperror.Unauthenticated()
	}
	old, err := s.repo.GetByKeyID(ctx, keyID)
	if err != nil {
		return nil, "", err
	}
	if old == nil {
		return nil, "", apperror.NotFound("API key", keyID)
	}
	if old.UserID != userID {
		return nil, "", apperror.Forbidden("")
	}
	now := s.clock.Now()
	if !old.Usable(now) {
		return nil, "", apperror.Conflict("API key is not active")
	}

	raw, hash, prefix, err := mintSecret()
	if err != nil {
		return nil, "", err
	}
	rotatedFrom := old.KeyID
	replacement := &domain.APIKey{
		ID:               s.genID.Generate(),
		OrgID:            old.OrgID,
		UserID:           old.UserID,
		ProjectID:        old.ProjectID,
		KeyID:            newKeyID(),
		Name:             old.Name,
		Prefix:           prefix,
		KeyHash:          hash,
		Scopes:           old.Scopes,
		IsActive:         true,
		RotatedFromKeyID: &rotatedFrom,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	graceEnd := now.Add(rotationGrace)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, replacement); err != nil {
			return err
		}
		fields := map[string]any{"updated_at": now}
		// Never extend an expiry that is already tighter than the grace.
		if old.ExpiresAt == nil || old.ExpiresAt.After(graceEnd) {
			fields["expires_at"] = graceEnd
		}
		return repo.UpdateFields(ctx, old.ID, fields)
	})
	if err != nil {
		return nil, "", err
	}

	s.log.Info("api key rotated",
		zap.String("old_key_id", old.KeyID),
		zap.String("new_key_id", replacement.KeyID))
	return replacement, raw, nil
}

// Revoke deactivates a key immediately. The key's owner may always
// revoke it; organization admins may revoke any member's key.
func (s *service) Revoke(ctx context.Context, userID snowflake.ID, keyID string) error {
	if userID == 0 {
		return apperror.Unauthenticated()
	}
	key, err := s.repo.GetByKeyID(ctx, keyID)
	if err != nil {
		return err
	}
	if key == nil {
		return apperror.NotFound("API key", keyID)
	}
	if err := s.gate.Authorize(ctx, userID, key.OrgID, authz.ObjectAPIKey, authz.ActionAPIKeyRevoke); err != nil {
		return err
	}
	if key.UserID != userID {
		if _, err := s.gate.RequireOrganizationRole(ctx, userID, key.OrgID, role.OrgAdmin); err != nil {
			return err
		}
	}
	if !key.IsActive {
		return apperror.Conflict("API key is already revoked")
	}
	return s.repo.UpdateFields(ctx, key.ID, map[string]any{
		"is_active":  false,
		"updated_at": s.clock.Now(),
	})
}

func (s *service) Authenticate(ctx context.Context, rawKey string) (*domain.APIKey, error) {
	if !strings.HasPrefix(rawKey, rawKeyPrefix) {
		return nil, apperror.Unauthenticated()
	}
	key, err := s.repo.GetByHash(ctx, domain.HashKey(rawKey))
	if err != nil {
		return nil, err
	}
	if key == nil || !key.Usable(s.clock.Now()) {
		return nil, apperror.Unauthenticated()
	}
	// Best effort; a failed touch must not fail the request.
	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, key.ID, map[string]any{"last_used_at": now}); err != nil {
		s.log.Warn("touch last_used_at", zap.String("key_id", key.KeyID), zap.Error(err))
	}
	key.LastUsedAt = &now
	return key, nil
}

func newKeyID() string {
	return "key_" + ulid.Make().String()
}

func mintSecret() (raw, hash, prefix string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("generate api key secret: %w", err)
	}
	raw = rawKeyPrefix + hex.EncodeToString(buf)
	return raw, domain.HashKey(raw), raw[:displayPrefixLen], nil
}

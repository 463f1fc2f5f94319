package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/config"
	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/service"
	bedService "github.com/jwalitptl/icu-api/internal/service/bed"
	userService "github.com/jwalitptl/icu-api/internal/service/user"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/metrics"
	"github.com/jwalitptl/icu-api/pkg/security"
)

// SeedResult reports what Seed created. GeneratedPassword is set only when
// the admin account was created with a generated password.
type SeedResult struct {
	AdminCreated      bool
	GeneratedPassword string
	BedsCreated       int
}

// Seed creates the admin account and the ward's beds unless they already
// exist. Running it twice changes nothing.
func Seed(ctx context.Context, store repository.Store, hasher security.PasswordHasher, m *metrics.Metrics, cfg config.SeedConfig) (*SeedResult, error) {
	result := &SeedResult{}

	username := strings.ToLower(cfg.AdminUsername)
	if username == "" {
		username = "admin"
	}
	_, err := store.Users().GetByUsername(ctx, username)
	switch {
	case err == nil:
		log.Info().Str("username", username).Msg("Admin account already exists")
	case service.IsNotFound(err):
		password := cfg.AdminPassword
		if password == "" {
			if password, err = randomSecret(18); err != nil {
				return nil, err
			}
			result.GeneratedPassword = password
		}
		users := userService.NewService(store.Users(), hasher)
		if _, err := users.CreateUser(ctx, &model.CreateUserRequest{
			Username: username,
			Email:    cfg.AdminEmail,
			Name:     "ICU Administrator",
			Password: password,
			Role:     model.RoleAdmin,
		}); err != nil {
			return nil, fmt.Errorf("create admin: %w", err)
		}
		result.AdminCreated = true
	default:
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	ward := cfg.Ward
	if ward == "" {
		ward = "ICU"
	}
	beds := bedService.NewService(store, m)
	for i := 1; i <= cfg.Beds; i++ {
		_, err := beds.CreateBed(ctx, &model.CreateBedRequest{
			Number:     fmt.Sprintf("ICU-%03d", i),
			RoomNumber: fmt.Sprintf("%d", 100+i),
			Floor:      1,
			Ward:       ward,
			Type:       model.BedTypeStandard,
			Features:   model.BedFeatures{Monitor: true, Oxygen: true},
		})
		if err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				continue
			}
			return nil, fmt.Errorf("create bed %d: %w", i, err)
		}
		result.BedsCreated++
	}

	log.Info().
		Bool("admin_created", result.AdminCreated).
		Int("beds_created", result.BedsCreated).
		Msg("Seed complete")
	return result, nil
}

func randomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/profile"
	"github.com/fekuna/artista-service/pkg/cache"
	"github.com/fekuna/artista-service/pkg/logger"
	"go.uber.org/zap"
)

const profileCacheTTL = 10 * time.Minute

var ErrMissingUser = errors.New("profile has no user id")

type profileUseCase struct {
	repo   profile.Repository
	cache  *cache.RedisClient
	logger logger.ZapLogger
}

func NewProfileUseCase(repo profile.Repository, cache *cache.RedisClient, log logger.ZapLogger) profile.UseCase {
	return &profileUseCase{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}

func (uc *profileUseCase) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	if val, err := uc.cache.Client.Get(ctx, cacheKey(userID)).Bytes(); err == nil {
		var p model.UserProfile
		if err := json.Unmarshal(val, &p); err == nil {
			return &p, nil
		}
	}

	p, err := uc.repo.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		def := model.DefaultProfile(userID)
		p, err = uc.repo.CreateProfileIfAbsent(ctx, &def)
		if err != nil {
			return nil, err
		}
		uc.logger.Info("Created default profile", zap.String("user_id", userID))
	}

	uc.store(ctx, p)
	return p, nil
}

func (uc *profileUseCase) SaveProfile(ctx context.Context, p *model.UserProfile) error {
	if p.ID == "" {
		return ErrMissingUser
	}
	if p.AvatarURL == "" {
		p.AvatarURL = model.DefaultAvatarURL
	}
	if err := uc.repo.UpsertProfile(ctx, p); err != nil {
		return err
	}
	uc.store(ctx, p)
	return nil
}

func (uc *profileUseCase) store(ctx context.Context, p *model.UserProfile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := uc.cache.Client.Set(ctx, cacheKey(p.ID), data, profileCacheTTL).Err(); err != nil {
		uc.logger.Warn("Failed to cache profile", zap.String("user_id", p.ID), zap.Error(err))
	}
}

func (uc *profileUseCase) GetFollowedArtistIDs(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	return uc.repo.FindFollowedArtistIDs(ctx, userID)
}

// SaveFollowedArtistIDs replaces the followed set. Duplicates keep their first position.
func (uc *profileUseCase) SaveFollowedArtistIDs(ctx context.Context, userID string, artistIDs []string) error {
	if userID == "" {
		return ErrMissingUser
	}
	seen := make(map[string]bool, len(artistIDs))
	ids := make([]string, 0, len(artistIDs))
	for _, id := range artistIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return uc.repo.ReplaceFollowedArtistIDs(ctx, userID, ids)
}

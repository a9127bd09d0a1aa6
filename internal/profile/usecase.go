package profile

import (
	"context"

	"github.com/fekuna/artista-service/internal/model"
)

type UseCase interface {
	// GetProfile returns the stored profile, creating the default one on first read.
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	SaveProfile(ctx context.Context, p *model.UserProfile) error

	GetFollowedArtistIDs(ctx context.Context, userID string) ([]string, error)
	SaveFollowedArtistIDs(ctx context.Context, userID string, artistIDs []string) error
}

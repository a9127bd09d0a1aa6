package profile

import (
	"context"

	"github.com/fekuna/artista-service/internal/model"
)

type Repository interface {
	// FindProfile returns nil when the user has no stored profile.
	FindProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	// CreateProfileIfAbsent stores p unless a profile already exists and returns the stored one.
	CreateProfileIfAbsent(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error)
	UpsertProfile(ctx context.Context, p *model.UserProfile) error

	FindFollowedArtistIDs(ctx context.Context, userID string) ([]string, error)
	// ReplaceFollowedArtistIDs swaps the whole followed set in one transaction.
	ReplaceFollowedArtistIDs(ctx context.Context, userID string, artistIDs []string) error
}

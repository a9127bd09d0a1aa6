package auth

import (
	"context"
	"testing"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPrincipalRoundTrip(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)
	assert.Empty(t, GetUserID(context.Background()))

	ctx := WithPrincipal(context.Background(), model.Principal{UserID: "u1", Email: "a@b.co"})
	p, ok := PrincipalFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "a@b.co", p.Email)
	assert.Equal(t, "u1", GetUserID(ctx))

	_, ok = PrincipalFrom(WithPrincipal(context.Background(), model.Principal{}))
	assert.False(t, ok, "an empty principal is no principal")
}

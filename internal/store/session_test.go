package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	sessions := NewSessions(newTestCache(t), SessionOptions{TTL: time.Hour, RememberTTL: 24 * time.Hour}, nil)
	ctx := context.Background()

	anon, err := sessions.New(ctx)
	require.NoError(t, err)
	assert.False(t, anon.Authenticated())
	assert.NotEmpty(t, anon.CSRFToken)
	assert.Equal(t, time.Hour, sessions.TTL(anon))

	anon.AddFlash(FlashInfo, "Please log in to access this page.")
	require.NoError(t, sessions.Save(ctx, anon))

	loggedIn, err := sessions.Login(ctx, anon, "user-1", true)
	require.NoError(t, err)
	assert.NotEqual(t, anon.ID, loggedIn.ID)
	assert.NotEqual(t, anon.CSRFToken, loggedIn.CSRFToken)
	assert.True(t, loggedIn.Authenticated())
	assert.Equal(t, 24*time.Hour, sessions.TTL(loggedIn))

	_, err = sessions.Get(ctx, anon.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	got, err := sessions.Get(ctx, loggedIn.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	flashes := got.PopFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, FlashInfo, flashes[0].Category)
	assert.Empty(t, got.Flashes)

	require.NoError(t, sessions.Destroy(ctx, loggedIn.ID))
	_, err = sessions.Get(ctx, loggedIn.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionGetRejectsMalformedID(t *testing.T) {
	sessions := NewSessions(newTestCache(t), SessionOptions{}, nil)
	ctx := context.Background()

	_, err := sessions.Get(ctx, "../../etc")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = sessions.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpires(t *testing.T) {
	sessions := NewSessions(newTestCache(t), SessionOptions{TTL: 30 * time.Millisecond}, nil)
	ctx := context.Background()

	s, err := sessions.New(ctx)
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)

	_, err = sessions.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

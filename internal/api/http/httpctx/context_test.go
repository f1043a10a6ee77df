package httpctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/auth-server/internal/model"
)

func TestManager_SetAndGet(t *testing.T) {
	m := NewManager()
	user := model.User{ID: uuid.New(), Email: "a@x.com", Role: model.Role{ID: model.RoleAdmin}}

	ctx := m.SetUserToContext(context.Background(), user)

	got, ok := m.GetUserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user, got)
}

func TestManager_Missing(t *testing.T) {
	m := NewManager()

	_, ok := m.GetUserFromContext(context.Background())
	assert.False(t, ok)
}

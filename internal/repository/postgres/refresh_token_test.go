package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRefreshTokenRepository(t *testing.T) {
	db := &Connection{}
	repo := NewRefreshTokenRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

package main

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/washtrack/api/internal/database"
	"golang.org/x/crypto/bcrypt"
)

type memAdmins struct {
	admins map[string]database.Admin
}

func (m *memAdmins) GetAdminByEmail(_ context.Context, email string) (database.Admin, error) {
	a, ok := m.admins[email]
	if !ok {
		return database.Admin{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *memAdmins) CreateAdmin(_ context.Context, arg database.CreateAdminParams) (database.Admin, error) {
	a := database.Admin{ID: int64(len(m.admins) + 1), Name: arg.Name, Email: arg.Email, HashedPassword: arg.HashedPassword}
	m.admins[arg.Email] = a
	return a, nil
}

func TestSeedAdmin(t *testing.T) {
	store := &memAdmins{admins: map[string]database.Admin{}}

	admin, created, err := seedAdmin(context.Background(), store, "admin@washtrack.ph", "secret123", "Admin")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte("secret123")))

	again, created, err := seedAdmin(context.Background(), store, "admin@washtrack.ph", "other", "Admin")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)
	assert.Len(t, store.admins, 1)
}

func TestSeedAdmin_LowercasesEmail(t *testing.T) {
	store := &memAdmins{admins: map[string]database.Admin{}}

	admin, created, err := seedAdmin(context.Background(), store, " Admin@WashTrack.PH ", "secret123", "Admin")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "admin@washtrack.ph", admin.Email)

	_, created, err = seedAdmin(context.Background(), store, "admin@washtrack.ph", "secret123", "Admin")
	require.NoError(t, err)
	assert.False(t, created)
}

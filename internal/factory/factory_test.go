package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/testutil"
)

func TestNewKeepsPartialAuthConfig(t *testing.T) {
	ctx := context.Background()
	app, err := New(ctx, Config{
		Logger:     testutil.NopLogger(),
		AuthConfig: auth.Config{TOTPIssuer: "EveronOps", BcryptCost: bcrypt.MinCost},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	id, err := app.AuthService.Register(ctx, "alice", "pw123", []auth.RecoveryAnswer{
		{Question: "First pet?", Answer: "Rex"},
		{Question: "Home town?", Answer: "Everon"},
	})
	require.NoError(t, err)

	user, err := app.Storage.GetUser(ctx, id)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(user.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	enr, err := app.AuthService.EnableTOTP(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, enr.EnrollmentURI, "issuer=EveronOps")

	login, err := app.AuthService.Login(ctx, "alice", "pw123")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(60*24*time.Hour), login.ExpiresAt, time.Minute)
}

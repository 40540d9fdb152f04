package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken("u-1", RoleStaff, "Ravi")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, RoleStaff, claims.Role)
	assert.Equal(t, "Ravi", claims.Name)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsUnknownRoleAndMissingExpiry(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, _, err := tm.GenerateToken("u-1", Role("ROOT"), "")
	require.NoError(t, err)
	_, err = tm.ParseToken(token)
	assert.Error(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(noExp)
	assert.Error(t, err)
}

func newApp(tm *TokenManager, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	mw := NewAuthMiddleware(tm)
	app.Get("/x", mw.Handle, guard, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.ID + ":" + string(p.Role))
	})
	return app
}

func TestMiddlewareAndRoleGuards(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	staff, _, _ := tm.GenerateToken("s-1", RoleStaff, "")
	customer, _, _ := tm.GenerateToken("c-1", RoleCustomer, "")

	app := newApp(tm, RequireStaff())

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", fiber.StatusInternalServerError},
		{"bad scheme", "Basic abc", fiber.StatusInternalServerError},
		{"customer forbidden", "Bearer " + customer, fiber.StatusForbidden},
		{"staff allowed", "Bearer " + staff, fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}

	app = newApp(tm, RequireAnyRole())
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+customer)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPrincipalActor(t *testing.T) {
	p := &Principal{ID: "s-1", Role: RoleAdmin}
	assert.True(t, p.IsStaff())
	assert.Equal(t, "s-1", p.Actor().ID)
	assert.Equal(t, "ADMIN", p.Actor().Role)
	var none *Principal
	assert.Empty(t, none.Actor().ID)
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mythmanga/internal/models"
	"mythmanga/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_jwt_secret"

type noUsers struct{}

func (noUsers) Create(context.Context, *models.User) error                  { return nil }
func (noUsers) GetByUsername(context.Context, string) (*models.User, error) { return nil, nil }
func (noUsers) GetByEmail(context.Context, string) (*models.User, error)    { return nil, nil }
func (noUsers) GetByID(context.Context, string) (*models.User, error)       { return nil, nil }

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthApp(mw fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/whoami", mw, func(c *fiber.Ctx) error {
		return c.SendString("user=" + UserID(c))
	})
	return app
}

func do(t *testing.T, app *fiber.App, header, value string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := make([]byte, 512)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestAuthMiddleware(t *testing.T) {
	auth := services.NewAuthService(noUsers{}, testSecret)
	valid := signToken(t, testSecret, jwt.MapClaims{
		"user_id":  "6f1c5a3e-2d4b-4a8e-9c1d-3e5f7a9b1c2d",
		"username": "luffy",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, testSecret, jwt.MapClaims{"user_id": "x", "exp": time.Now().Add(-time.Hour).Unix()})
	noSubject := signToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	required := newAuthApp(AuthRequired(auth))
	optional := newAuthApp(AuthOptional(auth))

	status, body := do(t, required, fiber.HeaderAuthorization, "Bearer "+valid)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user=6f1c5a3e-2d4b-4a8e-9c1d-3e5f7a9b1c2d", body)

	status, _ = do(t, required, "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = do(t, optional, "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user=", body)

	for _, header := range []string{"Bearer " + expired, "Bearer " + noSubject, "Token " + valid} {
		status, _ = do(t, optional, fiber.HeaderAuthorization, header)
		assert.Equal(t, http.StatusUnauthorized, status, header)
	}
}

func TestClientIdentity(t *testing.T) {
	app := fiber.New()
	app.Get("/whoami", ClientIdentity(), func(c *fiber.Ctx) error {
		return c.SendString(ClientID(c))
	})

	status, body := do(t, app, ClientIDHeader, "browser-0001")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "browser-0001", body)

	status, body = do(t, app, ClientIDHeader, "01HX8Z_Kc-9f")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "01HX8Z_Kc-9f", body)

	for _, bad := range []string{
		"",
		"short",
		"has spaces in it",
		"../../etc/passwd",
		"naruto+sasuke!",
		strings.Repeat("a", 129),
	} {
		status, _ = do(t, app, ClientIDHeader, bad)
		assert.Equal(t, http.StatusBadRequest, status, bad)
	}

	status, _ = do(t, app, ClientIDHeader, strings.Repeat("a", 128))
	assert.Equal(t, http.StatusOK, status)
}

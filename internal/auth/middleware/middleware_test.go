package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

func TestJWTMiddlewareSetsPrincipal(t *testing.T) {
	a := auth.NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT("stu-1", "student")
	require.NoError(t, err)

	var got auth.Principal
	h := auth.JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.Principal{Subject: "stu-1", Role: "student"}, got)

	for _, header := range []string{"", "Bearer junk", "Token " + tok} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestParseRejectsOtherSecret(t *testing.T) {
	tok, err := auth.NewAuthService("one", time.Hour).IssueJWT("stu-1", "student")
	require.NoError(t, err)
	_, err = auth.NewAuthService("two", time.Hour).Parse(tok)
	assert.Error(t, err)
}

type fakeRoles map[string]string

func (f fakeRoles) RoleOf(_ context.Context, sub string) (string, error) {
	if r, ok := f[sub]; ok {
		return r, nil
	}
	return "", auth.ErrUnknownUser
}

func TestAttachRole(t *testing.T) {
	var role string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = rbac.RoleFromContext(r.Context())
	})
	run := func(fallback bool, sub, claim string) int {
		role = ""
		ctx := rbac.WithRole(auth.WithSubject(context.Background(), sub), claim)
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		auth.AttachRole(fakeRoles{"t-1": "teacher"}, fallback)(next).ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run(false, "t-1", "student"))
	assert.Equal(t, "teacher", role, "stored role wins")

	assert.Equal(t, http.StatusOK, run(true, "ghost", "student"))
	assert.Equal(t, "student", role)

	assert.Equal(t, http.StatusForbidden, run(false, "ghost", "student"))
}

func TestLoginHandler(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:TestLoginHandler?mode=memory&cache=shared")
	require.NoError(t, err)
	defer conn.Close()

	users := auth.NewUserRepo(conn)
	stored, err := users.Upsert(ctx, auth.User{Username: "ada", Role: "student"}, "s3cret")
	require.NoError(t, err)

	a := auth.NewAuthService("secret", time.Hour)
	h := auth.LoginHandler(a, users)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"ada","password":"s3cret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	claims, err := a.Parse(out["access_token"])
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.Sub)
	assert.Equal(t, "student", claims.Role)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"ada","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// re-seeding without a password keeps the hash
	_, err = users.Upsert(ctx, auth.User{Username: "ada", Role: "teacher"}, "")
	require.NoError(t, err)
	role, err := users.RoleOf(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "teacher", role)
	_, err = users.Authenticate(ctx, "ada", "s3cret")
	assert.NoError(t, err)

	require.NoError(t, users.ChangePassword(ctx, stored.ID, "s3cret", "better"))
	_, err = users.Authenticate(ctx, "ada", "better")
	assert.NoError(t, err)
}

func TestUpsertManyRollsBack(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:TestUpsertManyRollsBack?mode=memory&cache=shared")
	require.NoError(t, err)
	defer conn.Close()
	users := auth.NewUserRepo(conn)

	got, err := users.UpsertMany(ctx, []auth.UserInput{
		{User: auth.User{Username: "ada"}},
		{User: auth.User{Username: "tess", Role: "teacher"}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "student", got[0].Role)
	assert.Equal(t, "teacher", got[1].Role)

	_, err = users.UpsertMany(ctx, []auth.UserInput{
		{User: auth.User{Username: "ada", Role: "admin"}},
		{User: auth.User{Username: "bob"}},
		{User: auth.User{Username: "  "}},
	})
	require.ErrorContains(t, err, "row 3")

	ada, err := users.Find(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "student", ada.Role, "earlier rows of a failed batch are rolled back")
	_, err = users.Find(ctx, "bob")
	assert.ErrorIs(t, err, auth.ErrUnknownUser)
}

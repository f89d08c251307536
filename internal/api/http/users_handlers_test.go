package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/db"
)

func TestParseCSV(t *testing.T) {
	in := "Username, Role, password\nada, student, pw1\nbob, teacher,\n"
	rows, err := parseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, userRow{Username: "ada", Role: "student", Password: "pw1"}, rows[0])
	assert.Equal(t, "teacher", rows[1].Role)
	assert.Empty(t, rows[1].Password)

	_, err = parseCSV(strings.NewReader("id,username\n1,x\n"))
	assert.ErrorContains(t, err, "missing column: role")
}

func TestBulkUpsertUsers(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer conn.Close()
	users := auth.NewUserRepo(conn)
	h := BulkUpsertUsersHandler(users)

	post := func(ct, body string) (int, string) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users/bulk", strings.NewReader(body))
		req.Header.Set("Content-Type", ct)
		h.ServeHTTP(rec, req)
		return rec.Code, rec.Body.String()
	}
	csvUpload := func(content string) (string, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "users.csv")
		require.NoError(t, err)
		_, _ = fw.Write([]byte(content))
		require.NoError(t, mw.Close())
		return mw.FormDataContentType(), buf.String()
	}

	t.Run("json rows", func(t *testing.T) {
		code, body := post("application/json",
			`[{"username":"ada","role":"student"},{"username":"tess","role":"teacher","display_name":"Tess"}]`)
		require.Equal(t, http.StatusOK, code, body)
		var out struct {
			Upserted int         `json:"upserted"`
			Users    []auth.User `json:"users"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.Equal(t, 2, out.Upserted)
		assert.Equal(t, "Tess", out.Users[1].DisplayName)
		assert.NotEmpty(t, out.Users[0].ID)
	})

	t.Run("bad role", func(t *testing.T) {
		code, body := post("application/json", `[{"username":"mal","role":"root"}]`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, body, "/0/role")
		_, err := users.Find(ctx, "mal")
		assert.ErrorIs(t, err, auth.ErrUnknownUser)
	})

	t.Run("missing username", func(t *testing.T) {
		code, _ := post("application/json", `[{"role":"student"}]`)
		assert.Equal(t, http.StatusBadRequest, code)
		code, _ = post("application/json", `[]`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("csv shares the schema", func(t *testing.T) {
		ct, body := csvUpload("username,role\ncarl,Student\n")
		code, resp := post(ct, body)
		require.Equal(t, http.StatusOK, code, resp)
		u, err := users.Find(ctx, "carl")
		require.NoError(t, err)
		assert.Equal(t, "student", u.Role)

		ct, body = csvUpload("username,role\ndora,student\neve,wizard\n")
		code, resp = post(ct, body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, resp, "/1/role")
		_, err = users.Find(ctx, "dora")
		assert.ErrorIs(t, err, auth.ErrUnknownUser, "nothing from a rejected upload is written")
	})
}

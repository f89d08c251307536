package http

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type userRow struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`               // usually "student"
	Password    string `json:"password,omitempty"` // plaintext, hashed on write
}

// POST /users/bulk  JSON array, or multipart file= with CSV (id,username,role[,password,display_name])
// All rows are written in one transaction.
func BulkUpsertUsersHandler(users *auth.UserRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := readUserRows(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in := make([]auth.UserInput, 0, len(rows))
		for _, row := range rows {
			in = append(in, auth.UserInput{
				User: auth.User{
					ID: row.ID, Username: strings.TrimSpace(row.Username),
					DisplayName: row.DisplayName, Role: row.Role,
				},
				Password: row.Password,
			})
		}
		out, err := users.UpsertMany(r.Context(), in)
		if err != nil {
			writeError(w, r, quiz.Internal("upsert users", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"upserted": len(out), "users": out})
	}
}

// readUserRows decodes and validates the upload against the bulkUsers schema.
func readUserRows(r *http.Request) ([]userRow, error) {
	var rows []userRow
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := decodeValid(r, "bulkUsers", &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, quiz.Invalidf("file required")
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, maxBodyBytes))
	if err != nil {
		return nil, quiz.Invalidf("read file: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, quiz.Invalidf("empty file")
	}
	if bytes.TrimSpace(body)[0] != '[' {
		parsed, err := parseCSV(bytes.NewReader(body))
		if err != nil {
			return nil, quiz.Invalidf("bad csv: %v", err)
		}
		for i := range parsed {
			parsed[i].Role = strings.ToLower(parsed[i].Role)
		}
		if body, err = json.Marshal(parsed); err != nil {
			return nil, quiz.Internal("encode csv rows", err)
		}
	}
	if err := decodeValidBytes(body, "bulkUsers", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseCSV(r io.Reader) ([]userRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"username", "role"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	get := func(rec []string, col string) string {
		if i, ok := idx[col]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	var rows []userRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, userRow{
			ID:          get(rec, "id"),
			Username:    get(rec, "username"),
			DisplayName: get(rec, "display_name"),
			Role:        get(rec, "role"),
			Password:    get(rec, "password"),
		})
	}
	return rows, nil
}

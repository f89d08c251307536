package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(k quiz.Kind) int {
	switch k {
	case quiz.KindInvalidInput:
		return http.StatusBadRequest
	case quiz.KindNotFound:
		return http.StatusNotFound
	case quiz.KindForbidden:
		return http.StatusForbidden
	case quiz.KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": {"kind", "message"}}. Internal details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := quiz.KindOf(err)
	msg := err.Error()
	if kind == quiz.KindInternal {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		msg = "internal error"
	}
	writeJSON(w, statusFor(kind), map[string]any{
		"error": map[string]string{"kind": kind.String(), "message": msg},
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// pageFromQuery reads page and limit with the listing defaults.
func pageFromQuery(r *http.Request) quiz.PageRequest {
	q := r.URL.Query()
	return quiz.PageRequest{
		Page:     parseIntDefault(q.Get("page"), 1),
		PageSize: parseIntDefault(q.Get("limit"), quiz.DefaultPageSize),
	}.Normalize()
}

// multiValue accepts both ?subject=a&subject=b and ?subject=a,b.
func multiValue(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// optionalBool parses "true"/"false"; anything else means unset.
func optionalBool(r *http.Request, key string) *bool {
	switch strings.ToLower(r.URL.Query().Get(key)) {
	case "true":
		b := true
		return &b
	case "false":
		b := false
		return &b
	}
	return nil
}

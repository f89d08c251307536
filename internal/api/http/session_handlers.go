package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// POST /tests  {"question_ids": [...], "difficulty": "...", "count": 10}
func CreateSessionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionIDs []string `json:"question_ids"`
			Difficulty  string   `json:"difficulty"`
			Count       int      `json:"count"`
		}
		if err := decodeValid(r, "createSession", &req); err != nil {
			writeError(w, r, err)
			return
		}
		opened, err := svc.OpenSession(r.Context(), auth.SubjectFromContext(r.Context()), req.QuestionIDs,
			quiz.Filters{Difficulty: req.Difficulty, Count: req.Count})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, opened)
	}
}

// GET /tests?status=&category=&subject=&topic=&page=&limit=
func ListSessionsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := svc.ListSessions(r.Context(), auth.SubjectFromContext(r.Context()), quiz.ListSessionsInput{
			Status:   q.Get("status"),
			Category: q.Get("category"),
			Subjects: multiValue(r, "subject"),
			Topics:   multiValue(r, "topic"),
			Page:     pageFromQuery(r),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// GET /tests/{sessionID}
func GetSessionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.GetSession(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// PUT /tests/{sessionID}  {"status": "succeeded"|"canceled"}
func CloseSessionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status string `json:"status"`
		}
		if err := decodeValid(r, "closeSession", &req); err != nil {
			writeError(w, r, err)
			return
		}
		ts, err := svc.CloseSession(r.Context(), auth.SubjectFromContext(r.Context()),
			chi.URLParam(r, "sessionID"), quiz.Status(req.Status))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ts)
	}
}

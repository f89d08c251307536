package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// POST /student-questions/submit
func SubmitAnswerHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID      string   `json:"test_session_id"`
			QuestionID     string   `json:"question_id"`
			SelectedAnswer *int     `json:"selected_answer"`
			Subjects       []string `json:"subjects"`
			Topics         []string `json:"topics"`
		}
		if err := decodeValid(r, "submitAnswer", &req); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := svc.SubmitAnswer(r.Context(), quiz.SubmitInput{
			StudentID:      auth.SubjectFromContext(r.Context()),
			SessionID:      req.SessionID,
			QuestionID:     req.QuestionID,
			SelectedAnswer: req.SelectedAnswer,
			Subjects:       req.Subjects,
			Topics:         req.Topics,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /student-questions/test/{sessionID}
func TestAnswersHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.TestAnswers(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": entries, "total": len(entries)})
	}
}

// GET /student-questions/stats?category=&subject=&topic=
func StatsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.StudentStats(r.Context(), auth.SubjectFromContext(r.Context()), quiz.StatsFilter{
			Category: r.URL.Query().Get("category"),
			Subjects: multiValue(r, "subject"),
			Topics:   multiValue(r, "topic"),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// GET /student-questions/history?category=&subject=&topic=&is_correct=&flagged=&test_session=&page=&limit=
func HistoryHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := svc.QuestionHistory(r.Context(), auth.SubjectFromContext(r.Context()), quiz.HistoryFilter{
			Category:  q.Get("category"),
			Subjects:  multiValue(r, "subject"),
			Topics:    multiValue(r, "topic"),
			IsCorrect: optionalBool(r, "is_correct"),
			Flagged:   optionalBool(r, "flagged"),
			SessionID: q.Get("test_session"),
			Page:      pageFromQuery(r),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// GET /student-questions/history/{sessionID}?filter=correct|incorrect|flagged
func SessionQuestionsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.SessionQuestions(r.Context(), auth.SubjectFromContext(r.Context()),
			chi.URLParam(r, "sessionID"),
			quiz.SessionQuestionFilter(r.URL.Query().Get("filter")),
			pageFromQuery(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// POST /questions  {"questions": [...]}  (teacher import)
func ImportQuestionsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Questions []quiz.Question `json:"questions"`
		}
		if err := decodeValid(r, "importQuestions", &req); err != nil {
			writeError(w, r, err)
			return
		}
		n, err := svc.ImportQuestions(r.Context(), auth.SubjectFromContext(r.Context()), req.Questions)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int{"imported": n})
	}
}

// GET /questions?category=&subject=&topic=&tags=&difficulty=&created_by=me&has_media=true&page=&limit=
func ListQuestionsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		in := quiz.ListQuestionsInput{
			Category:   q.Get("category"),
			Subjects:   multiValue(r, "subject"),
			Topics:     multiValue(r, "topic"),
			Tags:       multiValue(r, "tags"),
			Difficulty: q.Get("difficulty"),
			Page:       pageFromQuery(r),
		}
		if strings.EqualFold(q.Get("created_by"), "me") {
			in.CreatedBy = auth.SubjectFromContext(r.Context())
		}
		if hm := optionalBool(r, "has_media"); hm != nil {
			in.HasMedia = *hm
		}
		page, err := svc.ListQuestions(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// GET /questions/{questionID}
func GetQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GET /questions/tags
func QuestionTagsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := svc.QuestionTags(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(tags), "tags": tags})
	}
}

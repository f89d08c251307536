package http

import (
	"errors"
	"net/http"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// POST /users/change-password  {"old_password": "...", "new_password": "..."}
func ChangePasswordHandler(users *auth.UserRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := decodeValid(r, "changePassword", &req); err != nil {
			writeError(w, r, err)
			return
		}
		err := users.ChangePassword(r.Context(), auth.SubjectFromContext(r.Context()), req.OldPassword, req.NewPassword)
		if errors.Is(err, auth.ErrUnknownUser) {
			writeError(w, r, quiz.Forbiddenf("incorrect old password"))
			return
		}
		if err != nil {
			writeError(w, r, quiz.Internal("change password", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

package http

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	authmw "github.com/examprep-pro/examprep/internal/auth/middleware"
	"github.com/examprep-pro/examprep/internal/exam"
)

// POST /users/change-password  { old_password, new_password }
func ChangePasswordHandler(store exam.Store) http.HandlerFunc {
	type in struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		claims := authmw.ClaimsFromContext(r.Context())
		if claims == nil || claims.UserID == 0 {
			http.Error(w, "account required", http.StatusForbidden)
			return
		}
		var req in
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if len(req.NewPassword) < 8 {
			http.Error(w, "new password must be 8+ chars", http.StatusBadRequest)
			return
		}
		u, err := store.GetUserByUsername(r.Context(), claims.Username)
		if err != nil {
			writeError(w, err)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		if err := store.UpdateUserPassword(r.Context(), u.ID, string(hash)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

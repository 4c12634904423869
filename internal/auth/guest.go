package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	authmw "github.com/examprep-pro/examprep/internal/auth/middleware"
	"github.com/examprep-pro/examprep/internal/config"
)

const guestCookie = "ep_guest_id"

// GuestLoginHandler issues a student token with no user id, so attempts made
// with it are recorded anonymously. A cookie keeps the guest name stable for
// one browser across visits.
func GuestLoginHandler(a *authmw.AuthService, cfg config.Config) http.HandlerFunc {
	type out struct {
		AccessToken string `json:"access_token"`
		Username    string `json:"username"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.EnableGuestAuth {
			http.Error(w, "guest auth disabled", http.StatusForbidden)
			return
		}

		var username string
		if c, err := r.Cookie(guestCookie); err == nil && strings.HasPrefix(c.Value, "guest-") {
			username = c.Value
		} else {
			username = "guest-" + uuid.NewString()[:8]
		}

		tok, err := a.IssueJWT(0, username, "student")
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     guestCookie,
			Value:    username,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(30 * 24 * time.Hour),
		})
		_ = json.NewEncoder(w).Encode(out{AccessToken: tok, Username: username})
	}
}

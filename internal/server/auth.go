package server

import (
	"net/http"

	"github.com/mmynk/deptportal/internal/models"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	user, err := s.authn.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Email, "error", err)
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		s.internalError(w, "Failed to generate token", err, "user_id", user.ID)
		return
	}

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, models.LoginResponse{AccessToken: token, User: *user})
}

// internalError logs err with the given attributes and replies with a
// generic 500.
func (s *Server) internalError(w http.ResponseWriter, msg string, err error, args ...any) {
	s.logger.Error(msg, append(args, "error", err)...)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

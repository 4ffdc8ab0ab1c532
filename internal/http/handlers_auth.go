package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"casinoboys/internal/auth"
	"casinoboys/internal/core"
	"casinoboys/internal/store"
)

type authPageData struct {
	Theme string
	Error string
	Email string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", authPageData{Theme: themeFromRequest(r)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	profile, err := s.backend.GetProfileByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.ErrorContext(r.Context(), "Profile lookup failed", "error", err)
		}
		s.renderLoginError(w, r, email)
		return
	}
	if err := auth.CheckPassword(profile.PasswordHash, password); err != nil {
		s.renderLoginError(w, r, email)
		return
	}

	token, err := s.auth.IssueToken(profile.ID, profile.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Token issue failed", "error", err, "user_id", profile.ID)
		InternalServerError("Could not start a session").Write(w)
		return
	}

	s.setSessionCookie(w, token)
	slog.InfoContext(r.Context(), "User logged in", "user_id", profile.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, email string) {
	w.WriteHeader(http.StatusUnauthorized)
	s.render(w, r, "login.html", authPageData{
		Theme: themeFromRequest(r),
		Error: "Invalid email or password",
		Email: email,
	})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", authPageData{Theme: themeFromRequest(r)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	fullName := sanitizeInput(r.Form.Get("full_name"))
	password := r.Form.Get("password")

	if msg := validateRegistration(email, password); msg != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, r, "register.html", authPageData{
			Theme: themeFromRequest(r),
			Error: msg,
			Email: email,
		})
		return
	}

	if _, err := s.backend.GetProfileByEmail(r.Context(), email); err == nil {
		w.WriteHeader(http.StatusConflict)
		s.render(w, r, "register.html", authPageData{
			Theme: themeFromRequest(r),
			Error: "An account with this email already exists",
			Email: email,
		})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		slog.ErrorContext(r.Context(), "Profile lookup failed", "error", err)
		InternalServerError("Could not create the account").Write(w)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.ErrorContext(r.Context(), "Password hash failed", "error", err)
		InternalServerError("Could not create the account").Write(w)
		return
	}

	now := time.Now().UTC()
	profile := core.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.backend.CreateProfile(r.Context(), profile); err != nil {
		slog.ErrorContext(r.Context(), "Profile create failed", "error", err)
		InternalServerError("Could not create the account").Write(w)
		return
	}

	token, err := s.auth.IssueToken(profile.ID, profile.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Token issue failed", "error", err, "user_id", profile.ID)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	s.setSessionCookie(w, token)
	slog.InfoContext(r.Context(), "User registered", "user_id", profile.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func validateRegistration(email, password string) string {
	if email == "" {
		return "Email is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "Invalid email address"
	}
	if len(password) < 8 {
		return "Password must be at least 8 characters"
	}
	if strings.TrimSpace(password) != password {
		return "Password must not start or end with spaces"
	}
	return ""
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"casinoboys/internal/core"
)

const maxAvatarBytes = 2 << 20 // 2 MiB

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type settingsData struct {
	Theme   string
	Themes  []string
	Profile core.Profile
	Saved   bool
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	profile, err := s.currentProfile(r)
	if err != nil {
		s.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	s.render(w, r, "settings.html", settingsData{
		Theme:   themeFromRequest(r),
		Themes:  themeNames(),
		Profile: profile,
		Saved:   r.URL.Query().Get("saved") == "1",
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := s.currentProfile(r)
	if err != nil {
		s.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	fullName := parser.Get("full_name")
	if len(fullName) > 120 {
		UnprocessableEntityError("Name too long (max 120 characters)").Write(w)
		return
	}

	profile.FullName = fullName
	profile.UpdatedAt = time.Now().UTC()

	if err := s.backend.UpdateProfile(ctx, profile); err != nil {
		slog.ErrorContext(ctx, "Profile update failed", "error", err, "user_id", profile.ID)
		InternalServerError("Could not update the profile").Write(w)
		return
	}

	slog.InfoContext(ctx, "Profile updated", "user_id", profile.ID)

	resp := NewHTMXResponse().
		Status(http.StatusOK).
		TriggerSuccessNotification("Profile saved")
	s.writeOrRedirect(w, r, resp, "/settings?saved=1")
}

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := s.currentProfile(r)
	if err != nil {
		s.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if s.avatarDir == "" {
		InternalServerError("Avatar uploads are not configured").Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		UnprocessableEntityError("Avatar must be an image up to 2 MiB").Write(w)
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		BadRequestError("Missing avatar file").Write(w)
		return
	}
	defer file.Close()

	// Sniff the real content type instead of trusting the upload headers.
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		InternalServerError("Could not read the avatar").Write(w)
		return
	}
	contentType := http.DetectContentType(head[:n])
	ext, ok := avatarExtensions[contentType]
	if !ok {
		UnprocessableEntityError("Avatar must be a PNG, JPEG or WebP image").Write(w)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		InternalServerError("Could not read the avatar").Write(w)
		return
	}

	if err := os.MkdirAll(s.avatarDir, 0o755); err != nil {
		slog.ErrorContext(ctx, "Avatar directory create failed", "error", err, "dir", s.avatarDir)
		InternalServerError("Could not store the avatar").Write(w)
		return
	}

	filename := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.avatarDir, filename))
	if err != nil {
		slog.ErrorContext(ctx, "Avatar file create failed", "error", err)
		InternalServerError("Could not store the avatar").Write(w)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		slog.ErrorContext(ctx, "Avatar write failed", "error", err)
		InternalServerError("Could not store the avatar").Write(w)
		return
	}

	previous := profile.AvatarURL
	profile.AvatarURL = "/avatars/" + filename
	profile.UpdatedAt = time.Now().UTC()
	if err := s.backend.UpdateProfile(ctx, profile); err != nil {
		slog.ErrorContext(ctx, "Profile update failed", "error", err, "user_id", profile.ID)
		InternalServerError("Could not store the avatar").Write(w)
		return
	}

	// The old file is orphaned once the profile points elsewhere.
	if old, found := strings.CutPrefix(previous, "/avatars/"); found && old != "" {
		if err := os.Remove(filepath.Join(s.avatarDir, filepath.Base(old))); err != nil && !os.IsNotExist(err) {
			slog.WarnContext(ctx, "Stale avatar cleanup failed", "error", err, "file", old)
		}
	}

	slog.InfoContext(ctx, "Avatar updated", "user_id", profile.ID, "size_bytes", header.Size, "content_type", contentType)

	resp := NewHTMXResponse().
		Status(http.StatusOK).
		TriggerSuccessNotification("Avatar updated")
	s.writeOrRedirect(w, r, resp, "/settings?saved=1")
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	theme := parser.Get("theme")
	if !validThemes[theme] {
		UnprocessableEntityError(fmt.Sprintf("Unknown theme %q", theme)).Write(w)
		return
	}

	setThemeCookie(w, theme)

	resp := NewHTMXResponse().
		Status(http.StatusOK).
		TriggerThemeChanged(theme)
	s.writeOrRedirect(w, r, resp, "/settings")
}

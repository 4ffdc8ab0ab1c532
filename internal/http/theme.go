package http

import "net/http"

// themeCookieName matches the key the client script mirrors into
// localStorage ("casino-boys-theme").
const themeCookieName = "casino-boys-theme"

const defaultTheme = "light"

var validThemes = map[string]bool{
	"light":     true,
	"dark":      true,
	"halloween": true,
}

// themeNames lists the selectable themes in display order.
func themeNames() []string {
	return []string{"light", "dark", "halloween"}
}

// themeFromRequest reads and validates the theme cookie.
func themeFromRequest(r *http.Request) string {
	c, err := r.Cookie(themeCookieName)
	if err != nil || !validThemes[c.Value] {
		return defaultTheme
	}
	return c.Value
}

func setThemeCookie(w http.ResponseWriter, theme string) {
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookieName,
		Value:    theme,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
}

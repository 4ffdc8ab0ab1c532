package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"casinoboys/internal/core"
	"casinoboys/internal/stats"
	"casinoboys/internal/store"
)

type sessionListData struct {
	Theme     string
	Profile   core.Profile
	Summaries []sessionRow
	Today     string
}

type sessionRow struct {
	ID          string
	Name        string
	Location    string
	DateKey     string
	IsActive    bool
	PlayerCount int
	GameCount   int
	NetTotal    string
	NetLosing   bool
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := s.currentProfile(r)
	if err != nil {
		s.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	summaries, err := s.backend.ListSessionSummaries(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Session summary list failed", "error", err)
		InternalServerError("Could not load sessions").Write(w)
		return
	}

	data := sessionListData{
		Theme:   themeFromRequest(r),
		Profile: profile,
		Today:   core.DateKey(time.Now()),
	}
	for _, sum := range summaries {
		data.Summaries = append(data.Summaries, sessionRow{
			ID:          sum.SessionID,
			Name:        sum.Name,
			Location:    sum.Location,
			DateKey:     core.DateKey(sum.Date),
			IsActive:    sum.IsActive,
			PlayerCount: sum.PlayerCount,
			GameCount:   sum.TotalTransactions,
			NetTotal:    formatDollars(sum.TotalAmount),
			NetLosing:   sum.TotalAmount.IsNegative(),
		})
	}

	s.render(w, r, "sessions.html", data)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	date, err := core.ParseDate(parser.Get("date"))
	if err != nil {
		UnprocessableEntityError("Date must be a valid date").Write(w)
		return
	}

	now := time.Now().UTC()
	session := core.Session{
		ID:        uuid.NewString(),
		Name:      parser.Get("name"),
		Location:  parser.Get("location"),
		Date:      date,
		CreatedBy: uid,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := session.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if err := s.backend.CreateSession(ctx, session); err != nil {
		slog.ErrorContext(ctx, "Session create failed", "error", err, "session_name", session.Name)
		InternalServerError("Could not create the session").Write(w)
		return
	}

	slog.InfoContext(ctx, "Session created", "session_id", session.ID, "session_name", session.Name, "user_id", uid)

	resp := NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerSessionCreated(session.ID)
	s.writeOrRedirect(w, r, resp, "/sessions/"+session.ID)
}

type sessionDetailData struct {
	Theme   string
	Profile core.Profile
	Session core.Session
	DateKey string

	Transactions []transactionRow
	Leaderboard  []leaderboardRow
	Players      []playerOption
	Selected     string

	GameOptions []core.GameType
	GameLabels  map[core.GameType]string
	Today       string
}

type transactionRow struct {
	ID         string
	PlayerName string
	Game       string
	Amount     string
	Losing     bool
	DateKey    string
	Notes      string
	Mine       bool
}

type leaderboardRow struct {
	Rank      int
	Name      string
	AvatarURL string
	NetTotal  string
	Losing    bool
	Wins      string
	Losses    string
	Games     int
}

type playerOption struct {
	ID       string
	Name     string
	Selected bool
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	sessionID := r.PathValue("id")

	profile, err := s.currentProfile(r)
	if err != nil {
		s.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	session, err := s.backend.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("Session not found").Write(w)
			return
		}
		slog.ErrorContext(ctx, "Session load failed", "error", err, "session_id", sessionID)
		InternalServerError("Could not load the session").Write(w)
		return
	}

	txs, err := s.backend.ListTransactionsBySession(ctx, sessionID)
	if err != nil {
		slog.ErrorContext(ctx, "Session transaction list failed", "error", err, "session_id", sessionID)
		InternalServerError("Could not load the session").Write(w)
		return
	}

	players, err := s.sessionLeaderboard(ctx, sessionID)
	if err != nil {
		slog.ErrorContext(ctx, "Leaderboard build failed", "error", err, "session_id", sessionID)
		InternalServerError("Could not load the session").Write(w)
		return
	}

	profiles, err := s.profileIndex(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Profile index failed", "error", err)
		InternalServerError("Could not load the session").Write(w)
		return
	}

	selected := r.URL.Query().Get("player")
	if selected == "" {
		selected = stats.AllPlayers
	}
	visible := stats.FilterByPlayer(txs, selected)

	data := sessionDetailData{
		Theme:       themeFromRequest(r),
		Profile:     profile,
		Session:     session,
		DateKey:     core.DateKey(session.Date),
		Selected:    selected,
		GameOptions: core.Games(),
		GameLabels:  core.GameLabels,
		Today:       core.DateKey(time.Now()),
	}

	for _, t := range visible {
		name := t.UserID
		if p, ok := profiles[t.UserID]; ok {
			name = p.DisplayName()
		}
		data.Transactions = append(data.Transactions, transactionRow{
			ID:         t.ID,
			PlayerName: name,
			Game:       t.Game.Label(),
			Amount:     formatDollars(t.Amount),
			Losing:     t.Amount.IsNegative(),
			DateKey:    core.DateKey(t.TransactionDate),
			Notes:      t.Notes,
			Mine:       t.UserID == uid,
		})
	}

	data.Players = append(data.Players, playerOption{
		ID:       stats.AllPlayers,
		Name:     "All players",
		Selected: selected == stats.AllPlayers,
	})
	for i, p := range players {
		// Ranks come from the unfiltered standings so a filtered view
		// still shows the player's real position.
		if selected == stats.AllPlayers || selected == p.ID {
			data.Leaderboard = append(data.Leaderboard, leaderboardRow{
				Rank:      i + 1,
				Name:      p.Name,
				AvatarURL: p.AvatarURL,
				NetTotal:  formatDollars(p.Total),
				Losing:    p.Total.IsNegative(),
				Wins:      formatDollars(p.Wins),
				Losses:    formatDollars(p.Losses),
				Games:     p.Games,
			})
		}
		data.Players = append(data.Players, playerOption{
			ID:       p.ID,
			Name:     p.Name,
			Selected: selected == p.ID,
		})
	}

	s.render(w, r, "session_detail.html", data)
}

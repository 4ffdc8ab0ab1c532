package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"casinoboys/internal/core"
)

// AllPlayers is the filter sentinel meaning "no player filter".
const AllPlayers = "all"

// Player is one leaderboard entry: a session participant with accumulated
// totals across their transactions in that session.
type Player struct {
	ID        string
	Name      string
	AvatarURL string
	Total     decimal.Decimal
	Wins      decimal.Decimal
	Losses    decimal.Decimal
	Games     int
}

// BuildLeaderboard reduces a session's transactions into per-player totals
// and ranks players by net total descending. Player records are created
// lazily on first sighting; names resolve through the supplied profiles.
// Ties keep first-appearance order (the sort is stable).
//
// A zero-amount transaction lands in the loss accumulator as a zero loss
// rather than being excluded; reported totals depend on this split staying
// exactly a positive/else branch.
func BuildLeaderboard(txs []core.Transaction, profiles map[string]core.Profile) []Player {
	byID := make(map[string]int)
	players := make([]Player, 0)

	for _, t := range txs {
		idx, ok := byID[t.UserID]
		if !ok {
			idx = len(players)
			byID[t.UserID] = idx
			p := Player{
				ID:     t.UserID,
				Name:   profiles[t.UserID].DisplayName(),
				Total:  decimal.Zero,
				Wins:   decimal.Zero,
				Losses: decimal.Zero,
			}
			if prof, found := profiles[t.UserID]; found {
				p.AvatarURL = prof.AvatarURL
			}
			players = append(players, p)
		}

		amt := core.NormalizeAmount(t.Amount, decimal.Zero)
		players[idx].Total = players[idx].Total.Add(amt)
		players[idx].Games++
		if amt.IsPositive() {
			players[idx].Wins = players[idx].Wins.Add(amt)
		} else {
			players[idx].Losses = players[idx].Losses.Add(amt.Abs())
		}
	}

	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Total.GreaterThan(players[j].Total)
	})
	return players
}

// FilterByPlayer returns a fresh slice holding only the given player's
// transactions. An empty or "all" filter returns a copy of the input, so
// filtering to "all" reproduces the unfiltered result exactly. The source
// slice is never mutated.
func FilterByPlayer(txs []core.Transaction, playerID string) []core.Transaction {
	if playerID == "" || playerID == AllPlayers {
		out := make([]core.Transaction, len(txs))
		copy(out, txs)
		return out
	}
	out := make([]core.Transaction, 0)
	for _, t := range txs {
		if t.UserID == playerID {
			out = append(out, t)
		}
	}
	return out
}

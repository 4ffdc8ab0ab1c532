// Seeds the database with a few players, two sessions and a spread of
// wins and losses so the dashboard and calendar have something to show.
package main

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"casinoboys/internal/auth"
	"casinoboys/internal/cli"
	"casinoboys/internal/core"
	"casinoboys/internal/services"
)

const seedPassword = "letitride"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx := context.Background()
	service := services.NewTransactionService(repo, nil)

	passwordHash, err := auth.HashPassword(seedPassword)
	if err != nil {
		logger.Error("Password hash failed", "error", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	profiles := []core.Profile{
		{ID: uuid.NewString(), Email: "alex@example.com", FullName: "Alex Johnson"},
		{ID: uuid.NewString(), Email: "sam@example.com", FullName: "Sam Smith"},
		{ID: uuid.NewString(), Email: "jordan@example.com", FullName: "Jordan Lee"},
	}
	for i := range profiles {
		profiles[i].PasswordHash = passwordHash
		profiles[i].CreatedAt = now
		profiles[i].UpdatedAt = now
		if err := repo.CreateProfile(ctx, profiles[i]); err != nil {
			logger.Error("Profile seed failed", "error", err, "email", profiles[i].Email)
			os.Exit(1)
		}
	}
	logger.Info("Seeded profiles", "count", len(profiles), "password", seedPassword)

	sessions := []core.Session{
		{
			ID:        uuid.NewString(),
			Name:      "Vegas Weekend 2024",
			Location:  "Las Vegas, NV",
			Date:      now.AddDate(0, 0, -30),
			CreatedBy: profiles[0].ID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        uuid.NewString(),
			Name:      "Atlantic City Trip",
			Location:  "Atlantic City, NJ",
			Date:      now.AddDate(0, 0, -90),
			CreatedBy: profiles[1].ID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	for _, s := range sessions {
		if err := repo.CreateSession(ctx, s); err != nil {
			logger.Error("Session seed failed", "error", err, "session_name", s.Name)
			os.Exit(1)
		}
	}
	logger.Info("Seeded sessions", "count", len(sessions))

	rng := rand.New(rand.NewSource(now.UnixNano()))
	games := core.Games()

	count := 0
	for _, session := range sessions {
		for _, p := range profiles {
			for i := 0; i < 8; i++ {
				// Amounts land in [-500, 500] with cent precision.
				cents := rng.Int63n(100001) - 50000
				tx := core.Transaction{
					UserID:          p.ID,
					SessionID:       session.ID,
					Game:            games[rng.Intn(len(games))],
					Amount:          decimal.New(cents, -2),
					TransactionDate: session.Date.AddDate(0, 0, rng.Intn(3)),
				}
				if _, err := service.CreateTransaction(ctx, tx); err != nil {
					logger.Error("Transaction seed failed", "error", err, "user_id", p.ID)
					os.Exit(1)
				}
				count++
			}
		}
	}

	logger.Info("Seed complete", "transactions", count)
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"callcenter-api/internal/audit"
	"callcenter-api/internal/campaigns"
	"callcenter-api/internal/config"
	"callcenter-api/internal/leads"
	"callcenter-api/internal/seed"
	"callcenter-api/internal/store"
	"callcenter-api/internal/templates"
	"callcenter-api/internal/users"
	"callcenter-api/pkg/logger"
	"callcenter-api/pkg/utils"

	"github.com/brianvoe/gofakeit/v6"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var (
		agents    = flag.Int("agents", 5, "number of agents to create")
		camps     = flag.Int("campaigns", 2, "number of campaigns to create")
		perCamp   = flag.Int("leads", 25, "leads per campaign")
		adminMail = flag.String("admin-email", "admin@example.com", "admin login email")
		password  = flag.String("password", "changeme123", "password for every seeded user")
		seedVal   = flag.Int64("seed", time.Now().UnixNano(), "faker seed")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env)
	ctx := logger.With(context.Background(), log)

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: 4})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.CreateSchema(ctx, db); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	st := store.NewPostgres(db)
	au := audit.NewService(audit.NewPostgresRepo(db))
	s := &seed.Seeder{
		Users:     users.NewService(st, au),
		Campaigns: campaigns.NewService(st, au),
		Leads:     leads.NewService(st, cfg.Leads.DefaultPhoneRegion, nil),
		Templates: templates.NewService(st, cfg.Leads.DefaultPhoneRegion),
		Faker:     gofakeit.New(*seedVal),
	}

	res, err := s.Run(ctx, seed.Plan{
		AdminEmail:       *adminMail,
		Password:         *password,
		Agents:           *agents,
		Campaigns:        *camps,
		LeadsPerCampaign: *perCamp,
	})
	if err != nil {
		log.Error("seed failed", "err", err)
		os.Exit(1)
	}
	log.Info("seed complete",
		"admin_id", res.AdminID,
		"agents", len(res.AgentIDs),
		"campaigns", len(res.CampaignIDs),
		"leads", res.Leads,
		"templates", res.Templates,
	)
}

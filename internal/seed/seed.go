package seed

import (
	"context"
	"fmt"

	"callcenter-api/internal/campaigns"
	"callcenter-api/internal/leads"
	"callcenter-api/internal/store"
	"callcenter-api/internal/templates"
	"callcenter-api/internal/users"
	"callcenter-api/pkg/logger"

	"github.com/brianvoe/gofakeit/v6"
)

// Plan sizes a demo data set.
type Plan struct {
	AdminEmail       string
	Password         string
	Domain           string
	Agents           int
	Campaigns        int
	LeadsPerCampaign int
}

func (p Plan) withDefaults() Plan {
	out := p
	if out.AdminEmail == "" {
		out.AdminEmail = "admin@example.com"
	}
	if out.Password == "" {
		out.Password = "changeme123"
	}
	if out.Domain == "" {
		out.Domain = "example.com"
	}
	if out.Agents <= 0 {
		out.Agents = 5
	}
	if out.Campaigns <= 0 {
		out.Campaigns = 2
	}
	if out.LeadsPerCampaign <= 0 {
		out.LeadsPerCampaign = 25
	}
	return out
}

type Result struct {
	AdminID     int64
	AgentIDs    []int64
	CampaignIDs []int64
	Leads       int
	Templates   int
}

// Seeder writes demo data through the services so every row passes the
// same validation and distribution rules as API traffic.
type Seeder struct {
	Users     *users.Service
	Campaigns *campaigns.Service
	Leads     *leads.Service
	Templates *templates.Service
	Faker     *gofakeit.Faker
}

var campaignTags = []string{"b2b", "retail", "renewal", "upsell", "inbound", "cold"}

var demoTemplates = []templates.CreateInput{
	{Name: "Follow up", Message: "Hi {{name}}, thanks for your time today. I will call you back on {{date}}."},
	{Name: "Missed you", Message: "Hi {{name}}, we tried to reach you about {{campaign}}. When is a good time to talk?"},
}

func (s *Seeder) Run(ctx context.Context, p Plan) (Result, error) {
	p = p.withDefaults()
	log := logger.From(ctx)
	f := s.Faker
	if f == nil {
		f = gofakeit.New(0)
	}
	var res Result

	admin, err := s.Users.Create(ctx, users.CreateInput{
		Name:     "Administrator",
		Email:    p.AdminEmail,
		Password: p.Password,
		Role:     store.RoleAdmin,
	})
	if err != nil {
		return res, fmt.Errorf("create admin: %w", err)
	}
	res.AdminID = admin.ID

	for i := 0; i < p.Agents; i++ {
		name := f.Name()
		u, err := s.Users.Create(ctx, users.CreateInput{
			Name:     name,
			Email:    fmt.Sprintf("agent%02d@%s", i+1, p.Domain),
			Password: p.Password,
			Phone:    f.Phone(),
			Team:     fmt.Sprintf("Team %c", 'A'+rune(i%3)),
			Role:     store.RoleAgent,
		})
		if err != nil {
			return res, fmt.Errorf("create agent %d: %w", i+1, err)
		}
		res.AgentIDs = append(res.AgentIDs, u.ID)
	}

	for i := 0; i < p.Campaigns; i++ {
		d, err := s.Campaigns.Create(ctx, campaigns.CreateInput{
			Name:         f.Company() + " " + f.BuzzWord(),
			Description:  f.Sentence(8),
			Demographics: f.JobTitle(),
			Status:       store.CampaignActive,
			AgentIDs:     res.AgentIDs,
			Tags:         []string{campaignTags[i%len(campaignTags)], campaignTags[(i+1)%len(campaignTags)]},
		})
		if err != nil {
			return res, fmt.Errorf("create campaign %d: %w", i+1, err)
		}
		res.CampaignIDs = append(res.CampaignIDs, d.ID)

		raw := make([]leads.RawLead, p.LeadsPerCampaign)
		for j := range raw {
			raw[j] = leads.RawLead{
				Name:    f.Name(),
				Company: f.Company(),
				Phone:   f.Phone(),
				Email:   f.Email(),
			}
		}
		batch, err := s.Leads.AssignBatch(ctx, d.ID, raw)
		if err != nil {
			return res, fmt.Errorf("assign leads to campaign %d: %w", d.ID, err)
		}
		res.Leads += batch.Count
		log.Info("seeded campaign", "campaign_id", d.ID, "name", d.Name, "leads", batch.Count)
	}

	if s.Templates != nil {
		for _, t := range demoTemplates {
			if _, err := s.Templates.Create(ctx, t); err != nil {
				return res, fmt.Errorf("create template %q: %w", t.Name, err)
			}
			res.Templates++
		}
	}
	return res, nil
}

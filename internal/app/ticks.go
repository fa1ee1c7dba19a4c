package app

import (
	"context"
	"fmt"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/jobs"
)

// Расписание тиков (cron, часовой пояс приложения).
const (
	specEfficiency  = "@every 1m"
	specLoans       = "*/15 * * * *"
	specIncome      = "0 12 * * *"
	specBusinessTax = "0 18 * * *"
	specWealthTax   = "0 20 * * *"
	specCompetition = "0 21 * * 0"
	specSessions    = "*/10 * * * *"
)

func (c *Core) registerTicks() {
	c.Scheduler.Register(jobs.Tick{Name: "efficiency", Spec: specEfficiency, Run: func(ctx context.Context) (string, error) {
		if err := c.Efficiency.Tick(ctx); err != nil {
			return "", err
		}
		return "ok", nil
	}})

	c.Scheduler.Register(jobs.Tick{Name: "sessions", Spec: specSessions, Run: func(ctx context.Context) (string, error) {
		return fmt.Sprintf("closed=%d", c.Work.SweepIdle(ctx)), nil
	}})

	if c.cfg.FeatureLoansEnabled {
		c.Scheduler.Register(jobs.Tick{Name: "loans", Spec: specLoans, Run: func(ctx context.Context) (string, error) {
			r := c.Loans.Tick(ctx)
			return fmt.Sprintf("warned=%d failed=%d", r.Warned, r.Failed), nil
		}})
	}

	if c.cfg.FeatureBusinessEnabled {
		c.Scheduler.Register(jobs.Tick{Name: "income", Spec: specIncome, Run: func(ctx context.Context) (string, error) {
			r := c.Business.IncomeTick(ctx)
			return fmt.Sprintf("accounts=%d total=%d failed=%d", r.Accounts, r.Total, r.Failed), nil
		}})
		c.Scheduler.Register(jobs.Tick{Name: "business_tax", Spec: specBusinessTax, Run: func(ctx context.Context) (string, error) {
			r := c.Business.TaxTick(ctx)
			return fmt.Sprintf("accounts=%d total=%d failed=%d", r.Accounts, r.Total, r.Failed), nil
		}})
		c.Scheduler.Register(jobs.Tick{Name: "competition", Spec: specCompetition, Run: func(ctx context.Context) (string, error) {
			winners := c.Business.CompetitionTick(ctx)
			if len(winners) > 0 && c.cfg.EconomyChatID != 0 {
				gateway.Reply(ctx, c.sender, c.cfg.EconomyChatID, c.businessHandler.CompetitionText(winners))
			}
			return fmt.Sprintf("winners=%d", len(winners)), nil
		}})
	}

	if c.cfg.FeatureWealthTaxEnabled {
		c.Scheduler.Register(jobs.Tick{Name: "wealth_tax", Spec: specWealthTax, Run: func(ctx context.Context) (string, error) {
			r, err := c.Ledger.WealthTaxTick(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("accounts=%d collected=%d failed=%d", r.Accounts, r.Collected, r.Failed), nil
		}})
	}
}

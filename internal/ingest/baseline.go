package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/funnel_go/internal/models"
)

var ErrNotConfigured = errors.New("baseline sources not configured")

// Baseline reads observed campaign performance (ads + CRM) and turns it into
// funnel inputs, so a scenario can start from real numbers.
type Baseline struct {
	c      HTTPClient
	log    *slog.Logger
	adsURL string
	crmURL string
}

func NewBaseline(c HTTPClient, log *slog.Logger, adsURL, crmURL string) *Baseline {
	return &Baseline{c: c, log: log, adsURL: adsURL, crmURL: crmURL}
}

type Filter struct {
	CampaignID string
	Since      *time.Time
}

type adsResp []struct {
	Date        string  `json:"date"`
	CampaignID  string  `json:"campaign_id"`
	Channel     string  `json:"channel"`
	Clicks      int     `json:"clicks"`
	Impressions int     `json:"impressions"`
	Cost        float64 `json:"cost"`
}

type crmResp []struct {
	OpportunityID string  `json:"opportunity_id"`
	Stage         string  `json:"stage"`
	Amount        float64 `json:"amount"`
	CreatedAt     string  `json:"created_at"`
	CampaignID    string  `json:"campaign_id"`
}

func (b *Baseline) Configured() bool { return b.adsURL != "" && b.crmURL != "" }

// Totals fetches both sources concurrently and aggregates the rows that pass f.
func (b *Baseline) Totals(ctx context.Context, f Filter) (models.CampaignTotals, error) {
	if !b.Configured() {
		return models.CampaignTotals{}, eris.Wrap(ErrNotConfigured, "baseline")
	}
	var (
		aResp adsResp
		cResp crmResp
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eris.Wrap(GetJSONWithRetry(gctx, b.c, b.adsURL, &aResp), "baseline: ads")
	})
	g.Go(func() error {
		return eris.Wrap(GetJSONWithRetry(gctx, b.c, b.crmURL, &cResp), "baseline: crm")
	})
	if err := g.Wait(); err != nil {
		return models.CampaignTotals{}, err
	}

	var t models.CampaignTotals
	seen := map[string]struct{}{} // idempotencia por-record
	for _, r := range aResp {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
		if err != nil || !f.match(r.CampaignID, d) {
			continue
		}
		key := "ads|" + r.Date + "|" + r.CampaignID + "|" + r.Channel
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		a := models.AdsPerformance{
			Date: d, CampaignID: strings.TrimSpace(r.CampaignID), Channel: strings.TrimSpace(r.Channel),
			Clicks: max0(r.Clicks), Impressions: max0(r.Impressions), Cost: maxf(r.Cost),
		}
		t.Clicks += a.Clicks
		t.Impressions += a.Impressions
		t.Cost += a.Cost
	}

	for _, r := range cResp {
		d, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil || !f.match(r.CampaignID, d) {
			continue
		}
		key := "crm|" + r.OpportunityID
		if r.OpportunityID == "" {
			key = "crm|" + d.Format(time.RFC3339) + "|" + r.CampaignID
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		o := models.Opportunity{
			OpportunityID: r.OpportunityID,
			Stage:         strings.ToLower(strings.TrimSpace(r.Stage)),
			Amount:        maxf(r.Amount),
			CreatedAt:     d,
			CampaignID:    r.CampaignID,
		}
		t.Leads++
		switch o.Stage {
		case "opportunity", "closed_lost":
			t.Opportunities++
		case "closed_won":
			t.Opportunities++
			t.ClosedWon++
			t.Revenue += o.Amount
		}
	}

	b.log.Info("baseline totals",
		slog.String("campaign", f.CampaignID),
		slog.Int("impressions", t.Impressions),
		slog.Int("leads", t.Leads),
		slog.Int("closed_won", t.ClosedWon))
	return t, nil
}

// Inputs maps totals to funnel inputs. Rates with a zero denominator keep the
// value from def; booking and attendance rates always come from def. Spend and
// CPM only come from the data together, so CPM is never zero.
func Inputs(t models.CampaignTotals, def models.FunnelInputs) models.FunnelInputs {
	out := def
	if t.Cost > 0 && t.Impressions > 0 {
		out.Investimento = format(t.Cost)
		out.CPM = format(t.Cost * 1000 / float64(t.Impressions))
	}
	if t.Impressions > 0 {
		out.CTR = format(float64(t.Clicks) * 100 / float64(t.Impressions))
	}
	if t.Clicks > 0 {
		out.ConversaoLp = format(float64(t.Leads) * 100 / float64(t.Clicks))
	}
	if t.Opportunities > 0 {
		out.TaxaConversaoFinal = format(float64(t.ClosedWon) * 100 / float64(t.Opportunities))
	}
	if t.ClosedWon > 0 {
		out.TicketMedio = format(t.Revenue / float64(t.ClosedWon))
	}
	return out
}

func (f Filter) match(campaignID string, d time.Time) bool {
	if f.CampaignID != "" && !strings.EqualFold(strings.TrimSpace(campaignID), f.CampaignID) {
		return false
	}
	if f.Since != nil && dayUTC(d).Before(dayUTC(*f.Since)) {
		return false
	}
	return true
}

// shortest text that parses back to the same float
func format(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}
func maxf(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

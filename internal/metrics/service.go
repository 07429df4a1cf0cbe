package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/rotisserie/eris"

	"github.com/AngelCh415/funnel_go/internal/analysis"
	"github.com/AngelCh415/funnel_go/internal/funnel"
	"github.com/AngelCh415/funnel_go/internal/ingest"
	"github.com/AngelCh415/funnel_go/internal/models"
	"github.com/AngelCh415/funnel_go/internal/store"
)

// Result is what every calculation endpoint returns.
type Result struct {
	Inputs       models.FunnelInputs `json:"inputs"`
	Calculations models.Calculations `json:"calculations"`
	Chart        []models.ChartPoint `json:"chart"`
}

type Service struct {
	st       store.Store
	analyzer analysis.Analyzer
	baseline *ingest.Baseline
	prom     *Collectors
	log      *slog.Logger
}

func NewService(st store.Store, an analysis.Analyzer, bl *ingest.Baseline, prom *Collectors, log *slog.Logger) *Service {
	return &Service{st: st, analyzer: an, baseline: bl, prom: prom, log: log}
}

func (s *Service) Calculate(in models.FunnelInputs) Result {
	c := funnel.Compute(in)
	s.prom.calculation(c.Empty())
	return Result{Inputs: in, Calculations: c, Chart: funnel.Chart(c)}
}

func (s *Service) Defaults() Result { return s.Calculate(funnel.DefaultInputs()) }

// Analyze recomputes the calculations server-side and hands both halves to the
// collaborator. Errors wrap analysis.ErrCollaborator.
func (s *Service) Analyze(ctx context.Context, in models.FunnelInputs) (analysis.Response, error) {
	start := time.Now()
	resp, err := s.analyzer.Analyze(ctx, analysis.Request{Inputs: in, Calculations: funnel.Compute(in)})
	s.prom.analysis(err, time.Since(start))
	if err != nil {
		s.log.Warn("analysis failed", slog.String("err", err.Error()))
		return analysis.Response{}, err
	}
	return resp, nil
}

func (s *Service) Baseline(ctx context.Context, f ingest.Filter) (Result, models.CampaignTotals, error) {
	t, err := s.baseline.Totals(ctx, f)
	if err != nil {
		return Result{}, t, err
	}
	return s.Calculate(ingest.Inputs(t, funnel.DefaultInputs())), t, nil
}

func (s *Service) CreateScenario(ctx context.Context, name string, in models.FunnelInputs) (models.Scenario, error) {
	sc := funnel.NewScenario(name, in)
	s.prom.calculation(sc.Calculations.Empty())
	if err := s.st.Save(ctx, sc); err != nil {
		return models.Scenario{}, eris.Wrap(err, "create scenario")
	}
	return sc, nil
}

func (s *Service) Scenario(ctx context.Context, id string) (models.Scenario, error) {
	return s.st.Get(ctx, id)
}

// EditScenario applies one field edit and stores the new revision.
func (s *Service) EditScenario(ctx context.Context, id, field, value string) (models.Scenario, error) {
	sc, err := s.st.Get(ctx, id)
	if err != nil {
		return models.Scenario{}, err
	}
	next, err := funnel.Edit(sc, field, value)
	if err != nil {
		return models.Scenario{}, err
	}
	s.prom.calculation(next.Calculations.Empty())
	if err := s.st.Update(ctx, next, sc.Revision); err != nil {
		return models.Scenario{}, eris.Wrap(err, "edit scenario")
	}
	return next, nil
}

func (s *Service) ReplaceScenario(ctx context.Context, id string, in models.FunnelInputs) (models.Scenario, error) {
	sc, err := s.st.Get(ctx, id)
	if err != nil {
		return models.Scenario{}, err
	}
	next := funnel.Replace(sc, in)
	s.prom.calculation(next.Calculations.Empty())
	if err := s.st.Update(ctx, next, sc.Revision); err != nil {
		return models.Scenario{}, eris.Wrap(err, "replace scenario")
	}
	return next, nil
}

func (s *Service) DeleteScenario(ctx context.Context, id string) error {
	return s.st.Delete(ctx, id)
}

func (s *Service) ListScenarios(ctx context.Context, limit, offset int) ([]models.Scenario, error) {
	rows, err := s.st.List(ctx)
	if err != nil {
		return nil, err
	}
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset), nil
}

func (s *Service) Compare(ctx context.Context, baseID, altID string) (models.Comparison, error) {
	base, err := s.st.Get(ctx, baseID)
	if err != nil {
		return models.Comparison{}, err
	}
	alt, err := s.st.Get(ctx, altID)
	if err != nil {
		return models.Comparison{}, err
	}
	return funnel.Compare(base, alt), nil
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}

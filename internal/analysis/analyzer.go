// Package analysis turns a computed funnel scenario into narrative text.
// The text is opaque display content: no structure or length is guaranteed.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/AngelCh415/funnel_go/internal/models"
)

// ErrCollaborator marks every failure of the narrative generator. Callers show
// it to the user as a recoverable error.
var ErrCollaborator = errors.New("analysis unavailable")

type Request struct {
	Inputs       models.FunnelInputs `json:"inputs"`
	Calculations models.Calculations `json:"calculations"`
}

type Response struct {
	Analysis string `json:"analysis"`
}

type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Response, error)
}

// Static builds a fixed template from the numbers. Used when no LLM key is configured.
type Static struct{}

func (Static) Analyze(_ context.Context, req Request) (Response, error) {
	m, ok := req.Calculations.Metrics()
	if !ok {
		return Response{Analysis: "Preencha todos os campos com números válidos para gerar a análise."}, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Com investimento de %s o funil gera %s leads e %s vendas, com receita de %s.\n",
		req.Inputs.Investimento, num(m.Leads), num(m.Sales), num(m.Revenue))
	switch {
	case m.Revenue <= 0:
		b.WriteString("O cenário não gera receita; revise o ticket médio e as taxas de conversão.\n")
	case m.ROI < 0:
		fmt.Fprintf(&b, "O ROI é negativo (%s%%): o custo por venda (%s) supera o ticket médio.\n", num(m.ROI), num(m.CostPerSale))
	default:
		fmt.Fprintf(&b, "O ROI é de %s%%, com custo por lead de %s e custo por venda de %s.\n", num(m.ROI), num(m.CostPerLead), num(m.CostPerSale))
	}
	b.WriteString("Gargalo principal: " + bottleneck(m))
	return Response{Analysis: b.String()}, nil
}

// bottleneck names the stage with the largest relative drop after leads.
func bottleneck(m models.DerivedMetrics) string {
	stages := []struct {
		name     string
		from, to float64
	}{
		{"agendamento", m.Leads, m.Bookings},
		{"comparecimento", m.Bookings, m.Attendances},
		{"conversão final", m.Attendances, m.Sales},
	}
	worst, worstRate := "", 2.0
	for _, s := range stages {
		if s.from <= 0 {
			continue
		}
		if r := s.to / s.from; r < worstRate {
			worst, worstRate = s.name, r
		}
	}
	if worst == "" {
		return "sem dados suficientes."
	}
	return fmt.Sprintf("%s (%s%% de passagem).", worst, num(worstRate*100))
}

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

func num(f float64) string { return ptBR.Sprintf("%.2f", f) }

package funnel

import "github.com/AngelCh415/funnel_go/internal/models"

var ChartLabels = []string{"Impressões", "Cliques", "Leads", "Agendamentos", "Comparecimentos", "Vendas"}

// Chart projects the stage volumes in funnel order. An empty result gives zeros.
func Chart(c models.Calculations) []models.ChartPoint {
	m, _ := c.Metrics()
	values := []float64{m.Impressions, m.Clicks, m.Leads, m.Bookings, m.Attendances, m.Sales}
	out := make([]models.ChartPoint, len(ChartLabels))
	for i, label := range ChartLabels {
		out[i] = models.ChartPoint{Label: label, Value: values[i]}
	}
	return out
}

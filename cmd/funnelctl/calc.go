package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/AngelCh415/funnel_go/internal/funnel"
	"github.com/AngelCh415/funnel_go/internal/models"
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute a funnel scenario",
	Long: `Computes stage volumes and business metrics. Unset flags use the defaults:

  investimento=1000 cpm=10 ctr=1 conversaoLp=5
  taxaAgendamento=50 taxaComparecimento=70 taxaConversaoFinal=20 ticketMedio=500

Examples:
  funnelctl calc --investimento 5000 --cpm 25
  funnelctl calc --ticketMedio 0 --json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := inputsFromFlags(cmd)
		calc := funnel.Compute(in)
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return printJSON(cmd.OutOrStdout(), in, calc)
		}
		return printTable(cmd.OutOrStdout(), calc)
	},
}

func init() {
	addInputFlags(calcCmd)
	calcCmd.Flags().Bool("json", false, "print inputs and calculations as JSON")
	rootCmd.AddCommand(calcCmd)
}

func addInputFlags(cmd *cobra.Command) {
	def := funnel.DefaultInputs()
	for _, f := range models.InputFields {
		v, _ := def.Get(f)
		cmd.Flags().String(f, v, "funnel input "+f)
	}
}

func inputsFromFlags(cmd *cobra.Command) models.FunnelInputs {
	in := funnel.DefaultInputs()
	for _, f := range models.InputFields {
		v, _ := cmd.Flags().GetString(f)
		in, _ = in.With(f, v)
	}
	return in
}

func printJSON(w io.Writer, in models.FunnelInputs, calc models.Calculations) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"inputs": in, "calculations": calc, "chart": funnel.Chart(calc)})
}

func printTable(w io.Writer, calc models.Calculations) error {
	m, ok := calc.Metrics()
	if !ok {
		fmt.Fprintln(w, "Cálculo indisponível: todos os campos devem ser números válidos.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Etapa", "Volume"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, p := range funnel.Chart(calc) {
		data = append(data, []string{p.Label, fmtNum(p.Value)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	roi := color.New(color.FgGreen).SprintFunc()
	if m.ROI < 0 {
		roi = color.New(color.FgRed).SprintFunc()
	}
	summary := tablewriter.NewWriter(w)
	summary.Header([]string{"Métrica", "Valor"})
	summary.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := summary.Bulk([][]string{
		{"Receita", fmtNum(m.Revenue)},
		{"ROI", roi(fmtNum(m.ROI) + "%")},
		{"Custo por lead", fmtNum(m.CostPerLead)},
		{"Custo por agendamento", fmtNum(m.CostPerBooking)},
		{"Custo por venda", fmtNum(m.CostPerSale)},
	}); err != nil {
		return err
	}
	return summary.Render()
}

func fmtNum(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "n/d"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

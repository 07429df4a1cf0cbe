package analysis

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

const promptTemplate = `Você é um consultor sênior de marketing digital especializado em funis de vendas com agendamento.

Analise o cenário de funil abaixo. Os valores de entrada estão em texto, como digitados pelo usuário.
Percentuais estão em pontos percentuais (ex.: "5" = 5%). Valores monetários em reais.

ENTRADAS:
{{inputs}}

MÉTRICAS CALCULADAS:
{{calculations}}

Responda em português, em até 5 parágrafos curtos:
1. Diagnóstico geral do cenário (ROI, custo por lead, custo por venda).
2. Qual etapa do funil é o maior gargalo e por quê.
3. Três ações práticas para melhorar o resultado, com a métrica que cada uma impacta.
4. Riscos ou premissas irreais nas taxas informadas.
Não invente números que não estejam nas métricas.`

// BuildPrompt fills the template with the JSON of both halves of the request.
func BuildPrompt(req Request) (string, error) {
	in, err := json.MarshalIndent(req.Inputs, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "analysis: marshal inputs")
	}
	calc, err := json.MarshalIndent(req.Calculations, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "analysis: marshal calculations")
	}
	r := strings.NewReplacer(
		"{{inputs}}", string(in),
		"{{calculations}}", string(calc),
	)
	return r.Replace(promptTemplate), nil
}

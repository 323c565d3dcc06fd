package report

import (
	"math"
	"sort"

	"github.com/gestaozabele/recrutamento/internal/candidate"
)

// Pesos do ranking mensal.
const (
	recruitedWeight = 2
	analysisWeight  = 1
)

// CandidateFact é a projeção de candidato usada nas agregações.
type CandidateFact struct {
	ID             string
	Status         string
	PipelineStatus candidate.Stage
	Responsaveis   []string
}

// AnalysisFact é a projeção de análise de CV usada nas agregações.
type AnalysisFact struct {
	ID           string
	AnalisadoPor string
	Pontuacao    float64
}

// Metrics é o resumo do dashboard.
type Metrics struct {
	TotalCandidatos int     `json:"total_candidatos"`
	Leads           int     `json:"leads"`
	Entrevistas     int     `json:"entrevistas"`
	Recrutados      int     `json:"recrutados"`
	Inativos        int     `json:"inativos"`
	TotalAnalisesCV int     `json:"total_analises_cv"`
	PontuacaoMedia  float64 `json:"pontuacao_media"`
}

// StageCount é uma linha do funil.
type StageCount struct {
	Etapa      candidate.Stage `json:"etapa"`
	Candidatos int             `json:"candidatos"`
}

// RankEntry é a posição de um utilizador no ranking.
type RankEntry struct {
	Posicao        int    `json:"posicao"`
	UserID         string `json:"user_id"`
	Nome           string `json:"nome"`
	Recrutados     int    `json:"recrutados"`
	AnalisesFeitas int    `json:"analises_feitas"`
	Pontuacao      int    `json:"pontuacao"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Summarize calcula o dashboard a partir dos factos já filtrados por
// visibilidade e janela.
func Summarize(candidates []CandidateFact, analyses []AnalysisFact) Metrics {
	m := Metrics{TotalCandidatos: len(candidates), TotalAnalisesCV: len(analyses)}
	for _, c := range candidates {
		switch c.PipelineStatus {
		case candidate.StageLead:
			m.Leads++
		case candidate.StageEntrevista:
			m.Entrevistas++
		case candidate.StageRecrutado:
			m.Recrutados++
		}
		if c.Status == candidate.StatusInativo {
			m.Inativos++
		}
	}
	if len(analyses) > 0 {
		var sum float64
		for _, a := range analyses {
			sum += a.Pontuacao
		}
		m.PontuacaoMedia = round2(sum / float64(len(analyses)))
	}
	return m
}

// Funnel conta, por etapa, os candidatos que estão atualmente nela. Todas as
// etapas aparecem, pela ordem do funil.
func Funnel(candidates []CandidateFact) []StageCount {
	counts := make(map[candidate.Stage]int, len(candidate.Stages))
	for _, c := range candidates {
		counts[c.PipelineStatus]++
	}
	out := make([]StageCount, 0, len(candidate.Stages))
	for _, stage := range candidate.Stages {
		out = append(out, StageCount{Etapa: stage, Candidatos: counts[stage]})
	}
	return out
}

// Rank atribui a cada responsável de um candidato recrutado recruitedWeight
// pontos e a cada analista analysisWeight por análise. Empates partilham a
// posição (ranking de competição) e são ordenados por nome e id.
func Rank(candidates []CandidateFact, analyses []AnalysisFact, names map[string]string) []RankEntry {
	byUser := map[string]*RankEntry{}
	entry := func(id string) *RankEntry {
		e, ok := byUser[id]
		if !ok {
			e = &RankEntry{UserID: id, Nome: names[id]}
			byUser[id] = e
		}
		return e
	}

	for _, c := range candidates {
		if c.PipelineStatus != candidate.StageRecrutado {
			continue
		}
		seen := map[string]bool{}
		for _, id := range c.Responsaveis {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			entry(id).Recrutados++
		}
	}
	for _, a := range analyses {
		if a.AnalisadoPor == "" {
			continue
		}
		entry(a.AnalisadoPor).AnalisesFeitas++
	}

	out := make([]RankEntry, 0, len(byUser))
	for _, e := range byUser {
		e.Pontuacao = e.Recrutados*recruitedWeight + e.AnalisesFeitas*analysisWeight
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pontuacao != out[j].Pontuacao {
			return out[i].Pontuacao > out[j].Pontuacao
		}
		if out[i].Nome != out[j].Nome {
			return out[i].Nome < out[j].Nome
		}
		return out[i].UserID < out[j].UserID
	})
	for i := range out {
		if i > 0 && out[i].Pontuacao == out[i-1].Pontuacao {
			out[i].Posicao = out[i-1].Posicao
		} else {
			out[i].Posicao = i + 1
		}
	}
	return out
}

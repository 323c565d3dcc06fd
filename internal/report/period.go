package report

import (
	"errors"
	"strings"
	"time"
)

// Period identifica a janela de agregação.
type Period string

const (
	PeriodWeek  Period = "semana"
	PeriodMonth Period = "mes"
	PeriodYear  Period = "ano"
)

var ErrInvalidPeriod = errors.New("período inválido: use semana, mes ou ano")

var periodAliases = map[string]Period{
	"":       PeriodWeek,
	"semana": PeriodWeek,
	"week":   PeriodWeek,
	"mes":    PeriodMonth,
	"mês":    PeriodMonth,
	"month":  PeriodMonth,
	"ano":    PeriodYear,
	"year":   PeriodYear,
}

// ParsePeriod aceita os nomes em português e inglês. Vazio equivale a semana.
func ParsePeriod(v string) (Period, error) {
	p, ok := periodAliases[strings.ToLower(strings.TrimSpace(v))]
	if !ok {
		return "", ErrInvalidPeriod
	}
	return p, nil
}

// Window é um intervalo semiaberto [Start, End).
type Window struct {
	Start time.Time `json:"inicio"`
	End   time.Time `json:"fim"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Window resolve o período que contém now, no fuso loc. A semana começa à
// segunda-feira.
func (p Period) Window(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	y, m, d := now.Date()
	switch p {
	case PeriodMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(0, 1, 0)}
	case PeriodYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(1, 0, 0)}
	default:
		offset := (int(now.Weekday()) + 6) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(0, 0, 7)}
	}
}

// MonthWindow devolve o mês indicado (1-12) no fuso loc.
func MonthWindow(month, year int, loc *time.Location) (Window, error) {
	if month < 1 || month > 12 {
		return Window{}, errors.New("mês inválido")
	}
	if year < 2000 || year > 9999 {
		return Window{}, errors.New("ano inválido")
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

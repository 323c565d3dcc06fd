// Package calendar sincroniza agendamentos com um calendário externo.
package calendar

import (
	"context"
	"time"
)

// Event é a representação externa de um agendamento.
type Event struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// Sink cria, atualiza e remove eventos externos.
type Sink interface {
	Create(ctx context.Context, ev Event) (string, error)
	Update(ctx context.Context, externalID string, ev Event) error
	Delete(ctx context.Context, externalID string) error
}

// Noop não sincroniza nada; Create devolve id vazio.
type Noop struct{}

func (Noop) Create(context.Context, Event) (string, error) { return "", nil }

func (Noop) Update(context.Context, string, Event) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }

package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Google usa a API do Google Calendar com uma conta de serviço.
type Google struct {
	events     *gcal.EventsService
	calendarID string
	zone       string
}

// NewGoogle carrega as credenciais do ficheiro indicado.
func NewGoogle(ctx context.Context, credentialsFile, calendarID string, loc *time.Location) (*Google, error) {
	if credentialsFile == "" {
		return nil, errors.New("calendar: credenciais não configuradas")
	}
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	zone := "UTC"
	if loc != nil {
		zone = loc.String()
	}
	return &Google{events: svc.Events, calendarID: calendarID, zone: zone}, nil
}

func (g *Google) Create(ctx context.Context, ev Event) (string, error) {
	created, err := g.events.Insert(g.calendarID, g.toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar insert: %w", err)
	}
	return created.Id, nil
}

func (g *Google) Update(ctx context.Context, externalID string, ev Event) error {
	if externalID == "" {
		return nil
	}
	if _, err := g.events.Update(g.calendarID, externalID, g.toGoogle(ev)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar update: %w", err)
	}
	return nil
}

func (g *Google) Delete(ctx context.Context, externalID string) error {
	if externalID == "" {
		return nil
	}
	if err := g.events.Delete(g.calendarID, externalID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar delete: %w", err)
	}
	return nil
}

func (g *Google) toGoogle(ev Event) *gcal.Event {
	end := ev.End
	if end.IsZero() {
		end = ev.Start.Add(time.Hour)
	}
	attendees := make([]*gcal.EventAttendee, 0, len(ev.Attendees))
	for _, email := range ev.Attendees {
		if email != "" {
			attendees = append(attendees, &gcal.EventAttendee{Email: email})
		}
	}
	return &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: g.zone},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: g.zone},
		Attendees:   attendees,
	}
}

package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/recrutamento/internal/config"
	"github.com/gestaozabele/recrutamento/internal/notify"
)

func openInbox(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (notify.Inbox, error) {
	if cfg.Notifications.Store != "dynamodb" {
		return notify.NewPostgresInbox(pool), nil
	}
	ddb, err := notify.NewDynamoClient(ctx, cfg.Notifications.DynamoRegion, cfg.Notifications.DynamoEndpoint)
	if err != nil {
		return nil, err
	}
	return notify.NewDynamoInbox(ddb, cfg.Notifications.DynamoTable), nil
}

package mirror

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Replicator combina a escrita direta com a fila de reenvio.
type Replicator struct {
	writer Writer
	queue  Enqueuer
}

// NewReplicator cria o replicador. queue pode ser nil (sem reenvio).
func NewReplicator(writer Writer, queue Enqueuer) *Replicator {
	return &Replicator{writer: writer, queue: queue}
}

// Write grava de forma estrita; usado quando a falha deve ser compensada.
func (r *Replicator) Write(ctx context.Context, table string, row Row) error {
	return r.writer.Write(ctx, table, row)
}

// Replicate grava e, se falhar, agenda reenvio.
func (r *Replicator) Replicate(ctx context.Context, table string, row Row) {
	err := r.writer.Write(ctx, table, row)
	if err == nil {
		return
	}

	id, _ := row["id"].(string)
	logger := log.With().Str("component", "mirror").Str("table", table).Str("id", id).Logger()
	if r.queue == nil {
		logger.Warn().Err(err).Msg("espelho divergente, sem fila de reenvio")
		return
	}
	logger.Warn().Err(err).Msg("espelho falhou, reenvio agendado")
	if qerr := r.queue.EnqueueWrite(context.WithoutCancel(ctx), table, row); qerr != nil {
		logger.Error().Err(qerr).Msg("falha ao agendar reenvio")
	}
}

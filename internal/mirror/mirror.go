// Package mirror mantém a réplica relacional secundária em SQLite.
//
// A base primária é a fonte de verdade. A escrita no espelho é estrita apenas
// na criação de candidatos; nas restantes operações é best-effort e as falhas
// seguem para a fila de reenvio.
package mirror

import (
	"context"
	"encoding/json"
	"time"
)

// Row é uma linha a gravar, indexada pelo nome da coluna. A chave "id" é
// obrigatória.
type Row map[string]any

// Writer grava uma linha numa tabela do espelho (upsert por id).
type Writer interface {
	Write(ctx context.Context, table string, row Row) error
}

// Sink é o contrato usado pelos serviços de domínio.
type Sink interface {
	Writer
	// Replicate tenta gravar e, em caso de falha, agenda reenvio. Nunca falha.
	Replicate(ctx context.Context, table string, row Row)
}

// Discard ignora todas as escritas.
type Discard struct{}

func (Discard) Write(context.Context, string, Row) error { return nil }

func (Discard) Replicate(context.Context, string, Row) {}

// normalize converte os valores para tipos que o driver SQLite aceita e que
// sobrevivem à serialização JSON da fila.
func normalize(row Row) (Row, error) {
	out := make(Row, len(row))
	for k, v := range row {
		switch val := v.(type) {
		case nil, string, int64, float64:
			out[k] = val
		case int:
			out[k] = int64(val)
		case bool:
			if val {
				out[k] = int64(1)
			} else {
				out[k] = int64(0)
			}
		case time.Time:
			out[k] = val.UTC().Format(time.RFC3339Nano)
		case *time.Time:
			if val == nil {
				out[k] = nil
			} else {
				out[k] = val.UTC().Format(time.RFC3339Nano)
			}
		default:
			raw, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			out[k] = string(raw)
		}
	}
	return out, nil
}

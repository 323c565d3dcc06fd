package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// TaskWrite é o tipo da tarefa de reenvio para o espelho.
const TaskWrite = "mirror:write"

// WritePayload transporta a linha a reenviar.
type WritePayload struct {
	Table string `json:"table"`
	Row   Row    `json:"row"`
}

// NewWriteTask serializa a linha numa tarefa asynq.
func NewWriteTask(table string, row Row) (*asynq.Task, error) {
	values, err := normalize(row)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(WritePayload{Table: table, Row: values})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWrite, data), nil
}

// ParseWritePayload lê o conteúdo da tarefa.
func ParseWritePayload(task *asynq.Task) (WritePayload, error) {
	var payload WritePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WritePayload{}, err
	}
	return payload, nil
}

// Enqueuer agenda reenvios.
type Enqueuer interface {
	EnqueueWrite(ctx context.Context, table string, row Row) error
}

// Queue publica tarefas de reenvio no Redis.
type Queue struct {
	client   *asynq.Client
	queue    string
	maxRetry int
}

// NewQueue cria o cliente asynq a partir de REDIS_URL.
func NewQueue(redisURL, queue string, maxRetry int) (*Queue, error) {
	opt, err := RedisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if queue == "" {
		queue = "default"
	}
	return &Queue{client: asynq.NewClient(opt), queue: queue, maxRetry: maxRetry}, nil
}

// EnqueueWrite agenda a gravação da linha.
func (q *Queue) EnqueueWrite(ctx context.Context, table string, row Row) error {
	task, err := NewWriteTask(table, row)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task, asynq.Queue(q.queue), asynq.MaxRetry(q.maxRetry))
	return err
}

// Close fecha o cliente.
func (q *Queue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}

// RedisClientOpt converte REDIS_URL nas opções do asynq.
func RedisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url não configurada")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// Alerter recebe avisos operacionais quando o reenvio se esgota.
type Alerter interface {
	Alert(ctx context.Context, title, message string) error
}

// RetryHandler reprocessa tarefas de reenvio.
type RetryHandler struct {
	writer  Writer
	alerter Alerter
}

// NewRetryHandler cria o handler. alerter pode ser nil.
func NewRetryHandler(writer Writer, alerter Alerter) *RetryHandler {
	return &RetryHandler{writer: writer, alerter: alerter}
}

// ProcessTask implementa asynq.Handler.
func (h *RetryHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseWritePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	err = h.writer.Write(ctx, payload.Table, payload.Row)
	if err == nil {
		return nil
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	logger := log.With().Str("component", "mirror").Str("table", payload.Table).Logger()
	if retried < maxRetry {
		logger.Warn().Err(err).Int("retry", retried).Msg("reenvio para o espelho falhou")
		return err
	}

	id, _ := payload.Row["id"].(string)
	logger.Error().Err(err).Str("id", id).Msg("reenvio para o espelho esgotado")
	if h.alerter != nil {
		msg := fmt.Sprintf("Linha %s da tabela %s não foi replicada após %d tentativas: %v", id, payload.Table, retried+1, err)
		if aerr := h.alerter.Alert(ctx, "Espelho divergente", msg); aerr != nil {
			logger.Warn().Err(aerr).Msg("falha ao enviar alerta")
		}
	}
	return err
}

// Worker consome a fila de reenvio.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker cria o servidor asynq para a fila indicada.
func NewWorker(redisURL, queue string, concurrency int, handler *RetryHandler) (*Worker, error) {
	opt, err := RedisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if queue == "" {
		queue = "default"
	}
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      asynqLogger{},
	})
	mux := asynq.NewServeMux()
	mux.Handle(TaskWrite, handler)
	return &Worker{server: server, mux: mux}, nil
}

// Run bloqueia até o contexto terminar.
func (w *Worker) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()
	return w.server.Run(w.mux)
}

type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { log.Debug().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...interface{})  { log.Info().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...interface{})  { log.Warn().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...interface{}) { log.Error().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...interface{}) { log.Fatal().Msg(fmt.Sprint(args...)) }

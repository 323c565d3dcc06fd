package candidate

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
)

const candidateColumns = `id, chave_natural, nome, email, telefone, nif, skills, anos_experiencia, especializacao,
        cidade, distrito, tipo_contato, importancia, origem_contato, departamento, agencia_id, observacoes,
        status, motivo_inativacao, pipeline_status, indicacao, nivel_indicacao, responsavel_indicacao,
        documentos, responsaveis, historico, metricas, versao, criado_em, atualizado_em`

// activeResponsibleSQL é a condição de pertença a responsáveis ativos usada
// pelo predicado de visibilidade.
const activeResponsibleSQL = `EXISTS (SELECT 1 FROM jsonb_array_elements(responsaveis) r
        WHERE r->>'status' = 'ativo' AND r->>'user_id' = ANY(%s))`

const analysedSQL = `EXISTS (SELECT 1 FROM analises_cv a WHERE a.candidato_id = candidatos.id)`

var sortColumns = map[string]string{
	"nome":             "nome",
	"criado_em":        "criado_em",
	"atualizado_em":    "atualizado_em",
	"pipeline_status":  "pipeline_status",
	"anos_experiencia": "anos_experiencia",
	"importancia":      "importancia",
	"departamento":     "departamento",
}

// Repository provê acesso à tabela candidatos.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de candidatos.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// MembersSQL devolve a condição de responsável ativo para o placeholder ph.
func MembersSQL(ph string) string {
	return strings.Replace(activeResponsibleSQL, "%s", ph, 1)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*Candidate, error) {
	var (
		c        Candidate
		pipeline string
	)
	err := row.Scan(&c.ID, &c.ChaveNatural, &c.Nome, &c.Email, &c.Telefone, &c.NIF, &c.Skills, &c.AnosExperiencia,
		&c.Especializacao, &c.Cidade, &c.Distrito, &c.TipoContato, &c.Importancia, &c.OrigemContato,
		&c.Departamento, &c.AgenciaID, &c.Observacoes, &c.Status, &c.MotivoInativacao, &pipeline,
		&c.Indicacao, &c.NivelIndicacao, &c.ResponsavelIndicacao, &c.Documentos, &c.Responsaveis,
		&c.Historico, &c.Metricas, &c.Versao, &c.CriadoEm, &c.AtualizadoEm)
	if err != nil {
		return nil, repo.Translate(err)
	}
	c.PipelineStatus = Stage(pipeline)
	normalizeSlices(&c)
	return &c, nil
}

func normalizeSlices(c *Candidate) {
	if c.Skills == nil {
		c.Skills = []string{}
	}
	if c.Documentos == nil {
		c.Documentos = []Document{}
	}
	if c.Responsaveis == nil {
		c.Responsaveis = []Responsible{}
	}
	if c.Historico == nil {
		c.Historico = []HistoryEntry{}
	}
	if c.Metricas == nil {
		c.Metricas = map[Stage]StageMetric{}
	}
}

type documents struct {
	documentos   []byte
	responsaveis []byte
	historico    []byte
	metricas     []byte
}

func marshalDocuments(c *Candidate) (documents, error) {
	var (
		d   documents
		err error
	)
	normalizeSlices(c)
	if d.documentos, err = json.Marshal(c.Documentos); err != nil {
		return d, err
	}
	if d.responsaveis, err = json.Marshal(c.Responsaveis); err != nil {
		return d, err
	}
	if d.historico, err = json.Marshal(c.Historico); err != nil {
		return d, err
	}
	d.metricas, err = json.Marshal(c.Metricas)
	return d, err
}

// Create insere o candidato. Uma chave natural repetida devolve
// repo.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, c *Candidate) error {
	d, err := marshalDocuments(c)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
        INSERT INTO candidatos (`+candidateColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
                $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
    `, c.ID, c.ChaveNatural, c.Nome, c.Email, c.Telefone, c.NIF, c.Skills, c.AnosExperiencia, c.Especializacao,
		c.Cidade, c.Distrito, c.TipoContato, c.Importancia, c.OrigemContato, c.Departamento, c.AgenciaID,
		c.Observacoes, c.Status, c.MotivoInativacao, string(c.PipelineStatus), c.Indicacao, c.NivelIndicacao,
		c.ResponsavelIndicacao, d.documentos, d.responsaveis, d.historico, d.metricas, c.Versao, c.CriadoEm,
		c.AtualizadoEm)
	return repo.Translate(err)
}

// Delete remove fisicamente o registo. Usado apenas para compensar uma
// criação que não chegou ao espelho.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM candidatos WHERE id = $1`, id)
	return err
}

// Get busca por id.
func (r *Repository) Get(ctx context.Context, id string) (*Candidate, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidatos WHERE id = $1`, id)
	return scanCandidate(row)
}

// GetByKey busca pela chave natural.
func (r *Repository) GetByKey(ctx context.Context, key string) (*Candidate, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidatos WHERE chave_natural = $1`, key)
	return scanCandidate(row)
}

// Update grava o candidato se a versão lida ainda for a atual e incrementa-a.
// Devolve repo.ErrVersionConflict quando outro pedido gravou entretanto.
func (r *Repository) Update(ctx context.Context, c *Candidate) error {
	d, err := marshalDocuments(c)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
        UPDATE candidatos SET chave_natural = $3, nome = $4, email = $5, telefone = $6, nif = $7, skills = $8,
            anos_experiencia = $9, especializacao = $10, cidade = $11, distrito = $12, tipo_contato = $13,
            importancia = $14, origem_contato = $15, departamento = $16, agencia_id = $17, observacoes = $18,
            status = $19, motivo_inativacao = $20, pipeline_status = $21, indicacao = $22,
            nivel_indicacao = $23, responsavel_indicacao = $24, documentos = $25, responsaveis = $26,
            historico = $27, metricas = $28, atualizado_em = $29, versao = versao + 1
        WHERE id = $1 AND versao = $2
    `, c.ID, c.Versao, c.ChaveNatural, c.Nome, c.Email, c.Telefone, c.NIF, c.Skills, c.AnosExperiencia,
		c.Especializacao, c.Cidade, c.Distrito, c.TipoContato, c.Importancia, c.OrigemContato, c.Departamento,
		c.AgenciaID, c.Observacoes, c.Status, c.MotivoInativacao, string(c.PipelineStatus), c.Indicacao,
		c.NivelIndicacao, c.ResponsavelIndicacao, d.documentos, d.responsaveis, d.historico, d.metricas,
		c.AtualizadoEm)
	if err != nil {
		return repo.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM candidatos WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repo.ErrNotFound
		}
		return repo.ErrVersionConflict
	}
	c.Versao++
	return nil
}

// listQuery monta o SELECT da listagem. Skills casam por sobreposição: basta
// uma das pedidas.
func listQuery(filter ListFilter, scope rbac.Scope) (string, []any) {
	var q repo.Query
	if filter.Status != "" {
		q.Add("status = " + q.Arg(filter.Status))
	}
	if filter.PipelineStatus != "" {
		q.Add("pipeline_status = " + q.Arg(filter.PipelineStatus))
	}
	if filter.Departamento != "" {
		q.Add("departamento = " + q.Arg(filter.Departamento))
	}
	if filter.OrigemContato != "" {
		q.Add("origem_contato = " + q.Arg(filter.OrigemContato))
	}
	if filter.Localizacao != "" {
		ph := q.Arg("%" + filter.Localizacao + "%")
		q.Add("(cidade ILIKE " + ph + " OR distrito ILIKE " + ph + ")")
	}
	if len(filter.Skills) > 0 {
		q.Add("skills && " + q.Arg(filter.Skills))
	}
	if filter.Experiencia > 0 {
		q.Add("anos_experiencia >= " + q.Arg(filter.Experiencia))
	}
	if filter.CVAnalisado != nil {
		cond := analysedSQL
		if !*filter.CVAnalisado {
			cond = "NOT " + cond
		}
		q.Add(cond)
	}
	q.ApplyScope(scope, "departamento", MembersSQL)

	limit, offset := repo.Page(filter.Limit, filter.Offset)
	query := `SELECT ` + candidateColumns + ` FROM candidatos` + q.Where() +
		repo.OrderBy(filter.Sort, sortColumns, "criado_em DESC, id DESC") +
		` LIMIT ` + q.Arg(limit) + ` OFFSET ` + q.Arg(offset)
	return query, q.Args()
}

// List devolve os candidatos visíveis pelo predicado, com filtros e ordenação.
func (r *Repository) List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]Candidate, error) {
	query, args := listQuery(filter, scope)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

package candidate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/notify"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
	"github.com/gestaozabele/recrutamento/internal/storage"
	"github.com/gestaozabele/recrutamento/internal/util"
)

const (
	mirrorTable = "candidatos"
	maxAttempts = 3
)

// Store é a persistência usada pelo serviço.
type Store interface {
	Create(ctx context.Context, c *Candidate) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Candidate, error)
	GetByKey(ctx context.Context, key string) (*Candidate, error)
	Update(ctx context.Context, c *Candidate) error
	List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]Candidate, error)
}

// UserDirectory resolve utilizadores referidos pelo candidato.
type UserDirectory interface {
	IsActive(ctx context.Context, id string) (bool, error)
	Names(ctx context.Context, ids []string) (map[string]string, error)
}

// Service aplica as regras de acesso, o funil e a gestão de responsáveis.
type Service struct {
	store    Store
	mirror   mirror.Sink
	notifier notify.Sink
	uploader storage.Uploader
	users    UserDirectory
	pipeline Pipeline
	now      func() time.Time
}

// NewService cria o serviço de candidatos.
func NewService(store Store, sink mirror.Sink, notifier notify.Sink, uploader storage.Uploader, users UserDirectory, pipeline Pipeline) *Service {
	if uploader == nil {
		uploader = storage.NoopUploader{}
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{
		store:    store,
		mirror:   sink,
		notifier: notifier,
		uploader: uploader,
		users:    users,
		pipeline: pipeline,
		now:      time.Now,
	}
}

func actorLabel(actor rbac.Actor) string {
	if actor.Name != "" {
		return actor.Name
	}
	return actor.ID
}

func storeError(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return apperr.NotFound("Candidato não encontrado")
	case errors.Is(err, repo.ErrDuplicate):
		return apperr.Conflict("já existe um candidato com o mesmo nome, e-mail e telefone")
	default:
		return apperr.Internal(err)
	}
}

func (s *Service) load(ctx context.Context, id string) (*Candidate, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return c, nil
}

// mutation altera o candidato em memória e indica se houve mudança.
type mutation func(c *Candidate, now time.Time) (bool, error)

// mutate executa ler-alterar-gravar com CAS sobre versao, repetindo até
// maxAttempts vezes. Com checkAccess a falso o ator não precisa de ver o
// candidato (associação por chave natural).
func (s *Service) mutate(ctx context.Context, actor rbac.Actor, id string, checkAccess bool, fn mutation) (*Candidate, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if checkAccess && !rbac.CanAccess(actor, c.PolicyTarget(), rbac.Write) {
			return nil, apperr.NotFound("Candidato não encontrado")
		}

		now := s.now().UTC()
		changed, err := fn(c, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			return c, nil
		}
		c.AtualizadoEm = now

		err = s.store.Update(ctx, c)
		if err == nil {
			s.mirror.Replicate(ctx, mirrorTable, c.MirrorRow())
			return c, nil
		}
		if !errors.Is(err, repo.ErrVersionConflict) {
			return nil, storeError(err)
		}
		log.Debug().Str("candidato_id", id).Int("tentativa", attempt).Msg("conflito de versão, a repetir")
	}
	return nil, apperr.Conflict("o candidato foi alterado por outro pedido, tente novamente")
}

func validateReferral(indicacao bool, nivel, responsavel string) error {
	if indicacao && (nivel == "" || responsavel == "") {
		return apperr.Validation("nivel_indicacao e responsavel_indicacao são obrigatórios numa indicação")
	}
	if !indicacao && (nivel != "" || responsavel != "") {
		return apperr.Validation("nivel_indicacao e responsavel_indicacao exigem indicacao")
	}
	return nil
}

func cleanSkills(skills []string) []string {
	out := []string{}
	for _, skill := range skills {
		out = util.AppendUnique(out, strings.TrimSpace(skill))
	}
	return out
}

// Create cria o candidato ou, se a chave natural já existir, junta o ator aos
// responsáveis. created indica qual dos casos ocorreu.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (*Candidate, bool, error) {
	if actor.Malformed() {
		return nil, false, apperr.Forbidden("perfil de utilizador incompleto")
	}
	in.Nome = strings.TrimSpace(in.Nome)
	if in.Nome == "" {
		return nil, false, apperr.Validation("O nome deve ser preenchido.")
	}
	if err := util.ValidateStruct(in); err != nil {
		return nil, false, err
	}
	phone, err := NormalizePhone(in.Telefone)
	if err != nil {
		return nil, false, apperr.Validation(err.Error())
	}
	department := strings.TrimSpace(in.Departamento)
	if department == "" {
		department = actor.Department
	}
	if !rbac.ValidDepartment(department) {
		return nil, false, apperr.Validation("departamento inválido")
	}
	nivel, responsavel := strings.TrimSpace(in.NivelIndicacao), strings.TrimSpace(in.ResponsavelIndicacao)
	if err := validateReferral(in.Indicacao, nivel, responsavel); err != nil {
		return nil, false, err
	}

	email := util.NormalizeEmail(in.Email)
	key := NaturalKey(in.Nome, email, phone)
	if _, err := s.store.GetByKey(ctx, key); err == nil {
		c, err := s.attachByKey(ctx, actor, key)
		return c, false, err
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, apperr.Internal(err)
	}

	now := s.now().UTC()
	c := &Candidate{
		ID:                   util.NewID(),
		ChaveNatural:         key,
		Nome:                 in.Nome,
		Email:                email,
		Telefone:             phone,
		NIF:                  strings.TrimSpace(in.NIF),
		Skills:               cleanSkills(in.Skills),
		AnosExperiencia:      in.AnosExperiencia,
		Especializacao:       strings.TrimSpace(in.Especializacao),
		Cidade:               strings.TrimSpace(in.Cidade),
		Distrito:             strings.TrimSpace(in.Distrito),
		TipoContato:          strings.TrimSpace(in.TipoContato),
		Importancia:          strings.TrimSpace(in.Importancia),
		OrigemContato:        strings.TrimSpace(in.OrigemContato),
		Departamento:         department,
		AgenciaID:            strings.TrimSpace(in.AgenciaID),
		Observacoes:          strings.TrimSpace(in.Observacoes),
		Status:               StatusAtivo,
		PipelineStatus:       StageIdentificacao,
		Indicacao:            in.Indicacao,
		NivelIndicacao:       nivel,
		ResponsavelIndicacao: responsavel,
		Documentos:           []Document{},
		Responsaveis:         []Responsible{{UserID: actor.ID, DataAtribuicao: now, Status: StatusAtivo}},
		Historico:            []HistoryEntry{{Tipo: HistorySystem, Conteudo: "Candidato cadastrado no sistema", Data: now, Autor: actor.ID}},
		Metricas:             map[Stage]StageMetric{StageIdentificacao: {Entrada: &now}},
		Versao:               1,
		CriadoEm:             now,
		AtualizadoEm:         now,
	}
	if len(ActiveResponsibles(c)) == 0 {
		return nil, false, apperr.Validation("o candidato precisa de pelo menos um responsável ativo")
	}

	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// criação concorrente com a mesma chave: associa ao registo vencedor
			attached, err := s.attachByKey(ctx, actor, key)
			return attached, false, err
		}
		return nil, false, apperr.Internal(err)
	}

	if err := s.mirror.Write(ctx, mirrorTable, c.MirrorRow()); err != nil {
		if delErr := s.store.Delete(ctx, c.ID); delErr != nil {
			log.Error().Err(delErr).Str("candidato_id", c.ID).Msg("falha ao compensar criação de candidato")
		}
		return nil, false, apperr.Dependency("falha ao replicar o candidato", err)
	}
	log.Info().Str("candidato_id", c.ID).Str("usuario_id", actor.ID).Msg("candidato criado")
	return c, true, nil
}

func (s *Service) attachByKey(ctx context.Context, actor rbac.Actor, key string) (*Candidate, error) {
	existing, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, storeError(err)
	}
	return s.mutate(ctx, actor, existing.ID, false, func(c *Candidate, now time.Time) (bool, error) {
		return AttachResponsible(c, actor.ID, actorLabel(actor), actor.ID, now), nil
	})
}

// Get devolve o candidato se o ator o puder ver.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id string) (*Candidate, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanAccess(actor, c.PolicyTarget(), rbac.Read) {
		return nil, apperr.NotFound("Candidato não encontrado")
	}
	return c, nil
}

// List devolve os candidatos visíveis. Sem filtro de estado lista os ativos.
func (s *Service) List(ctx context.Context, actor rbac.Actor, filter ListFilter) ([]Candidate, error) {
	if filter.Status == "" {
		filter.Status = StatusAtivo
	}
	if filter.PipelineStatus != "" {
		if _, err := ParseStage(filter.PipelineStatus); err != nil {
			return nil, apperr.Validation(err.Error())
		}
	}
	candidates, err := s.store.List(ctx, filter, rbac.ScopeFor(actor))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return candidates, nil
}

// ListInactive devolve os candidatos inativos visíveis.
func (s *Service) ListInactive(ctx context.Context, actor rbac.Actor, filter ListFilter) ([]Candidate, error) {
	filter.Status = StatusInativo
	return s.List(ctx, actor, filter)
}

func setString(dst *string, src *string) bool {
	if src == nil {
		return false
	}
	v := strings.TrimSpace(*src)
	if v == *dst {
		return false
	}
	*dst = v
	return true
}

// Update aplica os campos permitidos. Mudanças de nome, e-mail ou telefone
// recalculam a chave natural.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id string, in UpdateInput) (*Candidate, error) {
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, true, func(c *Candidate, now time.Time) (bool, error) {
		changed := false
		if in.Nome != nil && strings.TrimSpace(*in.Nome) == "" {
			return false, apperr.Validation("O nome deve ser preenchido.")
		}
		changed = setString(&c.Nome, in.Nome) || changed
		if in.Email != nil {
			email := util.NormalizeEmail(*in.Email)
			changed = setString(&c.Email, &email) || changed
		}
		if in.Telefone != nil {
			phone, err := NormalizePhone(*in.Telefone)
			if err != nil {
				return false, apperr.Validation(err.Error())
			}
			changed = setString(&c.Telefone, &phone) || changed
		}
		changed = setString(&c.NIF, in.NIF) || changed
		changed = setString(&c.Especializacao, in.Especializacao) || changed
		changed = setString(&c.Cidade, in.Cidade) || changed
		changed = setString(&c.Distrito, in.Distrito) || changed
		changed = setString(&c.TipoContato, in.TipoContato) || changed
		changed = setString(&c.Importancia, in.Importancia) || changed
		changed = setString(&c.OrigemContato, in.OrigemContato) || changed
		changed = setString(&c.AgenciaID, in.AgenciaID) || changed
		changed = setString(&c.Observacoes, in.Observacoes) || changed
		if in.Departamento != nil {
			dep := strings.TrimSpace(*in.Departamento)
			if !rbac.ValidDepartment(dep) {
				return false, apperr.Validation("departamento inválido")
			}
			changed = setString(&c.Departamento, &dep) || changed
		}
		if in.Skills != nil {
			c.Skills = cleanSkills(*in.Skills)
			changed = true
		}
		if in.AnosExperiencia != nil && *in.AnosExperiencia != c.AnosExperiencia {
			c.AnosExperiencia = *in.AnosExperiencia
			changed = true
		}
		if in.Indicacao != nil || in.NivelIndicacao != nil || in.ResponsavelIndicacao != nil {
			indicacao, nivel, responsavel := c.Indicacao, c.NivelIndicacao, c.ResponsavelIndicacao
			if in.Indicacao != nil {
				indicacao = *in.Indicacao
				if !indicacao {
					nivel, responsavel = "", ""
				}
			}
			if in.NivelIndicacao != nil {
				nivel = strings.TrimSpace(*in.NivelIndicacao)
			}
			if in.ResponsavelIndicacao != nil {
				responsavel = strings.TrimSpace(*in.ResponsavelIndicacao)
			}
			if err := validateReferral(indicacao, nivel, responsavel); err != nil {
				return false, err
			}
			c.Indicacao, c.NivelIndicacao, c.ResponsavelIndicacao = indicacao, nivel, responsavel
			changed = true
		}
		if !changed {
			return false, nil
		}
		c.ChaveNatural = NaturalKey(c.Nome, c.Email, c.Telefone)
		c.appendHistory(HistoryUpdate, "Informações atualizadas", actor.ID, now)
		return true, nil
	})
}

// ChangeStatus move o candidato no funil. A notificação de indicação é
// emitida uma vez, depois de gravar.
func (s *Service) ChangeStatus(ctx context.Context, actor rbac.Actor, id, newStatus, note string) (*Candidate, error) {
	if strings.TrimSpace(newStatus) == "" {
		return nil, apperr.Validation("Novo status é obrigatório")
	}
	var referral *Referral
	c, err := s.mutate(ctx, actor, id, true, func(c *Candidate, now time.Time) (bool, error) {
		ref, err := s.pipeline.Transition(c, newStatus, actor.ID, note, now)
		if err != nil {
			return false, apperr.Wrap(apperr.KindValidation, err.Error(), err)
		}
		referral = ref
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if referral != nil {
		content := fmt.Sprintf("Sua indicação para %s foi recrutada com sucesso! Você receberá sua recompensa em breve.",
			referral.CandidateName)
		notify.Fire(ctx, s.notifier, notify.Event{
			UserID:  referral.ReferrerID,
			Type:    notify.TypeReferralSuccess,
			Content: content,
			Data:    map[string]string{"candidato_id": referral.CandidateID, "nivel_indicacao": referral.Tier},
		})
	}
	return c, nil
}

// AddInteraction regista uma interação no histórico com o tipo e o conteúdo
// indicados por quem chama.
func (s *Service) AddInteraction(ctx context.Context, actor rbac.Actor, id, tipo, conteudo string) (*Candidate, error) {
	tipo, conteudo = strings.TrimSpace(tipo), strings.TrimSpace(conteudo)
	if tipo == "" || conteudo == "" {
		return nil, apperr.Validation("Tipo e conteúdo são obrigatórios")
	}
	return s.mutate(ctx, actor, id, true, func(c *Candidate, now time.Time) (bool, error) {
		c.appendHistory(tipo, conteudo, actor.ID, now)
		return true, nil
	})
}

// Inactivate marca o candidato como inativo. Nunca há remoção física.
func (s *Service) Inactivate(ctx context.Context, actor rbac.Actor, id, motivo string) (*Candidate, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, apperr.Validation("Motivo da inativação é obrigatório")
	}
	return s.mutate(ctx, actor, id, true, func(c *Candidate, now time.Time) (bool, error) {
		if c.Status == StatusInativo {
			return false, apperr.Validation("candidato já está inativo")
		}
		c.Status = StatusInativo
		c.MotivoInativacao = motivo
		c.appendHistory(HistoryInactivation, "Inativado: "+motivo, actor.ID, now)
		return true, nil
	})
}

// Reactivate volta a ativar um candidato inativo.
func (s *Service) Reactivate(ctx context.Context, actor rbac.Actor, id string) (*Candidate, error) {
	return s.mutate(ctx, actor, id, true, func(c *Candidate, now time.Time) (bool, error) {
		if c.Status == StatusAtivo {
			return false, apperr.Validation("candidato já está ativo")
		}
		c.Status = StatusAtivo
		c.MotivoInativacao = ""
		c.appendHistory(HistoryReactivation, "Candidato reativado", actor.ID, now)
		return true, nil
	})
}

func (s *Service) userLabel(ctx context.Context, userID string) (string, error) {
	if s.users == nil {
		return userID, nil
	}
	ok, err := s.users.IsActive(ctx, userID)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if !ok {
		return "", apperr.Validation("utilizador inexistente ou inativo")
	}
	names, err := s.users.Names(ctx, []string{userID})
	if err != nil {
		return "", apperr.Internal(err)
	}
	if name := names[userID]; name != "" {
		return name, nil
	}
	return userID, nil
}

// AddResponsible junta outro utilizador aos responsáveis, ou reativa-o.
func (s *Service) AddResponsible(ctx context.Context, actor rbac.Actor, id, userID string) (*Candidate, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Validation("user_id obrigatório")
	}
	label, err := s.userLabel(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, true, func(c *Candidate, now time.Time) (bool, error) {
		if AttachResponsible(c, userID, label, actor.ID, now) {
			return true, nil
		}
		return SetResponsibleStatus(c, userID, StatusAtivo, label, actor.ID, now)
	})
}

// SetResponsible ativa ou inativa um responsável existente.
func (s *Service) SetResponsible(ctx context.Context, actor rbac.Actor, id, userID, status string) (*Candidate, error) {
	return s.mutate(ctx, actor, id, true, func(c *Candidate, now time.Time) (bool, error) {
		changed, err := SetResponsibleStatus(c, userID, strings.TrimSpace(status), userID, actor.ID, now)
		switch {
		case errors.Is(err, ErrResponsibleNotFound):
			return false, apperr.NotFound(err.Error())
		case err != nil:
			return false, apperr.Validation(err.Error())
		}
		return changed, nil
	})
}

// UploadDocument guarda um documento (CV, certificados) no armazenamento.
func (s *Service) UploadDocument(ctx context.Context, actor rbac.Actor, id, fileName, contentType string, body []byte) (*Candidate, error) {
	if !storage.IsDocument(contentType) {
		return nil, apperr.Validation("formato de documento não suportado")
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}

	result, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:         storage.ObjectKey("candidatos/"+id+"/documentos", fileName),
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return nil, apperr.Dependency("falha ao guardar o documento", err)
	}

	return s.mutate(ctx, actor, id, true, func(c *Candidate, now time.Time) (bool, error) {
		c.Documentos = append(c.Documentos, Document{
			Nome:       fileName,
			URL:        result.URL,
			Key:        result.Key,
			Tipo:       contentType,
			EnviadoPor: actor.ID,
			EnviadoEm:  now,
		})
		c.appendHistory(HistoryUpdate, "Documento adicionado: "+fileName, actor.ID, now)
		return true, nil
	})
}

package rbac

// Kind identifica o tipo de entidade avaliada.
type Kind int

const (
	KindCandidate Kind = iota + 1
	KindCVAnalysis
	KindTask
	KindUser
	KindAppointment
)

// Mode distingue leitura de escrita.
type Mode int

const (
	Read Mode = iota
	Write
)

// Target descreve os metadados de uma entidade já carregada.
//
// Responsible contém apenas responsáveis ativos. Para utilizadores, SubjectID é
// o id do próprio registo, Role o seu papel e BrokerID o broker a que pertence.
type Target struct {
	Kind        Kind
	Department  string
	OwnerID     string
	Responsible []string
	AssigneeID  string
	Observers   []string
	SubjectID   string
	Role        Role
	BrokerID    string
}

// members devolve os ids que "possuem" a entidade para efeitos de equipa e
// de colaborador individual.
func (t Target) members() []string {
	switch t.Kind {
	case KindCandidate:
		return t.Responsible
	case KindCVAnalysis:
		return []string{t.OwnerID}
	case KindTask, KindAppointment:
		ids := make([]string, 0, 2+len(t.Responsible)+len(t.Observers))
		ids = append(ids, t.OwnerID, t.AssigneeID)
		ids = append(ids, t.Responsible...)
		ids = append(ids, t.Observers...)
		return ids
	case KindUser:
		return []string{t.SubjectID, t.BrokerID}
	default:
		return nil
	}
}

// ScopeKind é a forma do predicado de visibilidade.
type ScopeKind int

const (
	ScopeNone ScopeKind = iota
	ScopeAll
	ScopeDepartment
	ScopeMembers
)

// Scope é a regra de visibilidade de um ator expressa como predicado.
// Os repositórios traduzem-no para SQL; Matches aplica-o em memória.
type Scope struct {
	Kind       ScopeKind
	Department string
	ActorIDs   []string
}

// ScopeFor deriva o predicado de visibilidade do ator.
func ScopeFor(actor Actor) Scope {
	if actor.Malformed() {
		return Scope{Kind: ScopeNone}
	}
	switch actor.Role.Category() {
	case CategoryAdmin, CategoryManager:
		return Scope{Kind: ScopeAll}
	case CategoryDirector:
		if actor.Department == "" {
			return Scope{Kind: ScopeNone}
		}
		return Scope{Kind: ScopeDepartment, Department: actor.Department}
	case CategoryBroker:
		return Scope{Kind: ScopeMembers, ActorIDs: actor.TeamIDs()}
	case CategoryIndividual:
		return Scope{Kind: ScopeMembers, ActorIDs: []string{actor.ID}}
	default:
		return Scope{Kind: ScopeNone}
	}
}

// Matches avalia o predicado contra uma entidade.
func (s Scope) Matches(t Target) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeDepartment:
		return t.Department != "" && t.Department == s.Department
	case ScopeMembers:
		for _, member := range t.members() {
			if member == "" {
				continue
			}
			for _, id := range s.ActorIDs {
				if member == id {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

// CanAccess decide leitura ou escrita do ator sobre a entidade.
//
// Leitura e escrita partilham as mesmas regras para candidatos, análises e
// tarefas; para candidatos o predicado já exige responsável ativo. Escrita em
// utilizadores segue a hierarquia de users.go.
func CanAccess(actor Actor, target Target, mode Mode) bool {
	if target.Kind == KindUser && mode == Write {
		return CanManageUser(actor, target)
	}
	if target.Kind == KindAppointment && mode == Write {
		return actor.ID != "" && actor.ID == target.OwnerID
	}
	return ScopeFor(actor).Matches(target)
}

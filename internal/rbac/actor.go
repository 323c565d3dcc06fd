package rbac

// MembershipStatus é o estado de uma associação a agência.
const (
	MembershipActive   = "ativo"
	MembershipInactive = "inativo"
)

// AgencyMembership liga o ator a uma agência.
type AgencyMembership struct {
	AgencyID string `json:"agencia_id"`
	Status   string `json:"status"`
}

// Actor é o utilizador autenticado que conduz o pedido.
type Actor struct {
	ID         string             `json:"id"`
	Name       string             `json:"nome"`
	Role       Role               `json:"role"`
	Department string             `json:"departamento,omitempty"`
	BrokerID   string             `json:"broker_equipa_id,omitempty"`
	Team       []string           `json:"equipa,omitempty"`
	Agencies   []AgencyMembership `json:"agencias,omitempty"`
}

// Malformed indica um registo sem departamento nem equipa fora do topo.
func (a Actor) Malformed() bool {
	if a.ID == "" || !a.Role.Valid() {
		return true
	}
	if a.Role.TopTier() {
		return false
	}
	return a.Department == "" && a.BrokerID == "" && len(a.Team) == 0
}

// TeamIDs devolve o próprio id seguido dos membros da equipa.
func (a Actor) TeamIDs() []string {
	ids := make([]string, 0, len(a.Team)+1)
	ids = append(ids, a.ID)
	for _, id := range a.Team {
		if id != "" && id != a.ID {
			ids = append(ids, id)
		}
	}
	return ids
}

// HasActiveAgency indica associação ativa à agência.
func (a Actor) HasActiveAgency(agencyID string) bool {
	for _, m := range a.Agencies {
		if m.AgencyID == agencyID && m.Status == MembershipActive {
			return true
		}
	}
	return false
}

// CanAccessAgency permite Admin ou membros ativos.
func (a Actor) CanAccessAgency(agencyID string) bool {
	if a.Role == RoleAdmin {
		return true
	}
	return a.HasActiveAgency(agencyID)
}

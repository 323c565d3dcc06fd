// Package rbac concentra o registro de papéis e as regras de acesso por entidade.
package rbac

import (
	"fmt"
	"strings"
)

// Role é um dos papéis fixos do sistema, com o valor persistido em português.
type Role string

const (
	RoleAdmin               Role = "Admin"
	RoleManager             Role = "Manager"
	RoleDiretorRH           Role = "Diretor de RH"
	RoleDiretorComercial    Role = "Diretor Comercial"
	RoleDiretorMarketing    Role = "Diretor de Marketing"
	RoleDiretorCredito      Role = "Diretor de Crédito"
	RoleDiretorRemodelacoes Role = "Diretor de Remodelações"
	RoleDiretorFinanceiro   Role = "Diretor Financeiro"
	RoleDiretorJuridico     Role = "Diretor Jurídico"
	RoleBroker              Role = "Broker de Equipa"
	RoleRecrutador          Role = "Recrutador"
	RoleConsultor           Role = "Consultor"
	RoleEmployee            Role = "Employee"
)

// Category agrupa papéis com a mesma regra de acesso.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryAdmin
	CategoryManager
	CategoryDirector
	CategoryBroker
	CategoryIndividual
)

func (c Category) String() string {
	switch c {
	case CategoryAdmin:
		return "admin"
	case CategoryManager:
		return "manager"
	case CategoryDirector:
		return "director"
	case CategoryBroker:
		return "broker"
	case CategoryIndividual:
		return "individual"
	default:
		return "unknown"
	}
}

type roleInfo struct {
	category  Category
	rank      int
	recruiter bool
	// departamento natural do diretor
	department string
}

var registry = map[Role]roleInfo{
	RoleAdmin:               {category: CategoryAdmin, rank: 100},
	RoleManager:             {category: CategoryManager, rank: 90},
	RoleDiretorRH:           {category: CategoryDirector, rank: 70, department: "RH"},
	RoleDiretorComercial:    {category: CategoryDirector, rank: 70, department: "Comercial"},
	RoleDiretorMarketing:    {category: CategoryDirector, rank: 70, department: "Marketing"},
	RoleDiretorCredito:      {category: CategoryDirector, rank: 70, department: "Crédito"},
	RoleDiretorRemodelacoes: {category: CategoryDirector, rank: 70, department: "Remodelações"},
	RoleDiretorFinanceiro:   {category: CategoryDirector, rank: 70, department: "Financeiro"},
	RoleDiretorJuridico:     {category: CategoryDirector, rank: 70, department: "Jurídico"},
	RoleBroker:              {category: CategoryBroker, rank: 50},
	RoleRecrutador:          {category: CategoryIndividual, rank: 40, recruiter: true},
	RoleConsultor:           {category: CategoryIndividual, rank: 20},
	RoleEmployee:            {category: CategoryIndividual, rank: 20},
}

// Roles lista todos os papéis em ordem decrescente de hierarquia.
var Roles = []Role{
	RoleAdmin, RoleManager,
	RoleDiretorRH, RoleDiretorComercial, RoleDiretorMarketing, RoleDiretorCredito,
	RoleDiretorRemodelacoes, RoleDiretorFinanceiro, RoleDiretorJuridico,
	RoleBroker, RoleRecrutador, RoleConsultor, RoleEmployee,
}

// Departments são os departamentos reconhecidos.
var Departments = []string{"RH", "Comercial", "Marketing", "Crédito", "Remodelações", "Financeiro", "Jurídico"}

// ParseRole converte texto livre em Role conhecido.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(raw))
	if _, ok := registry[role]; !ok {
		return "", fmt.Errorf("papel desconhecido %q", raw)
	}
	return role, nil
}

// Valid indica se o papel está registado.
func (r Role) Valid() bool {
	_, ok := registry[r]
	return ok
}

// Category devolve a categoria do papel.
func (r Role) Category() Category {
	return registry[r].category
}

// Rank devolve o peso hierárquico; papéis desconhecidos valem zero.
func (r Role) Rank() int {
	return registry[r].rank
}

// TopTier indica Admin ou Manager.
func (r Role) TopTier() bool {
	c := r.Category()
	return c == CategoryAdmin || c == CategoryManager
}

// Recruiter indica a família de recrutadores.
func (r Role) Recruiter() bool {
	return registry[r].recruiter
}

// NaturalDepartment devolve o departamento associado a um diretor, se houver.
func (r Role) NaturalDepartment() string {
	return registry[r].department
}

// RequiresDepartment indica se o utilizador precisa de departamento.
func (r Role) RequiresDepartment() bool {
	return r.Valid() && !r.TopTier()
}

// RequiresBroker indica se o utilizador precisa de broker de equipa.
func (r Role) RequiresBroker() bool {
	return r == RoleConsultor
}

// ValidDepartment indica se o departamento existe.
func ValidDepartment(dep string) bool {
	for _, d := range Departments {
		if d == dep {
			return true
		}
	}
	return false
}

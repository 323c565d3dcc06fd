package rbac

// CanCreateRole decide se o ator pode criar um utilizador com o papel e
// departamento indicados.
func CanCreateRole(actor Actor, role Role, department string) bool {
	if actor.Malformed() || !role.Valid() {
		return false
	}
	switch actor.Role.Category() {
	case CategoryAdmin:
		return true
	case CategoryManager:
		return role != RoleAdmin
	case CategoryDirector:
		return role.Rank() < actor.Role.Rank() && department == actor.Department
	case CategoryIndividual:
		if !actor.Role.Recruiter() {
			return false
		}
		return role.Rank() < actor.Role.Rank() && department == actor.Department
	default:
		return false
	}
}

// CanAssignRole decide se o ator pode promover ou rebaixar o alvo para role.
func CanAssignRole(actor Actor, target Target, current, role Role) bool {
	if actor.ID == target.SubjectID {
		return false
	}
	if !CanManageUser(actor, target) {
		return false
	}
	if current == RoleAdmin && actor.Role != RoleAdmin {
		return false
	}
	return CanCreateRole(actor, role, target.Department)
}

// CanManageUser decide escrita sobre o registo de um utilizador.
// O próprio utilizador pode alterar o seu perfil; papel e estado seguem
// CanAssignRole e CanInactivateUser.
func CanManageUser(actor Actor, target Target) bool {
	if actor.Malformed() {
		return false
	}
	if actor.ID == target.SubjectID {
		return true
	}
	targetRole := target.Role
	switch actor.Role.Category() {
	case CategoryAdmin:
		return true
	case CategoryManager:
		return targetRole != RoleAdmin
	case CategoryDirector:
		return !targetRole.TopTier() && target.Department != "" && target.Department == actor.Department
	default:
		return false
	}
}

// CanInactivateUser aplica as mesmas regras de gestão, mas nunca ao próprio.
func CanInactivateUser(actor Actor, target Target) bool {
	if actor.ID == target.SubjectID {
		return false
	}
	return CanManageUser(actor, target)
}

// CanManageOrganization restringe agências e departamentos ao topo.
func CanManageOrganization(actor Actor) bool {
	return !actor.Malformed() && actor.Role.TopTier()
}

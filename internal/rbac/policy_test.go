package rbac

import "testing"

func sampleTargets() []Target {
	targets := []Target{}
	for _, dep := range append([]string{""}, Departments...) {
		targets = append(targets,
			Target{Kind: KindCandidate, Department: dep, Responsible: []string{"u-1"}},
			Target{Kind: KindCVAnalysis, Department: dep, OwnerID: "u-2"},
			Target{Kind: KindTask, Department: dep, OwnerID: "u-3", AssigneeID: "u-4", Observers: []string{"u-5"}},
			Target{Kind: KindUser, Department: dep, SubjectID: "u-6", Role: RoleEmployee},
		)
	}
	return targets
}

func TestTopTierAlwaysAllowed(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleManager} {
		actor := Actor{ID: "top", Role: role}
		for _, target := range sampleTargets() {
			for _, mode := range []Mode{Read, Write} {
				if !CanAccess(actor, target, mode) {
					t.Fatalf("%s denied on kind %d dep %q mode %d", role, target.Kind, target.Department, mode)
				}
			}
		}
	}
}

func TestDirectorDepartmentEquality(t *testing.T) {
	directors := []Role{RoleDiretorRH, RoleDiretorComercial, RoleDiretorMarketing, RoleDiretorCredito,
		RoleDiretorRemodelacoes, RoleDiretorFinanceiro, RoleDiretorJuridico}
	for _, role := range directors {
		for _, dep := range Departments {
			actor := Actor{ID: "dir", Role: role, Department: dep}
			for _, target := range sampleTargets() {
				if target.Kind == KindUser {
					continue
				}
				want := target.Department == dep
				if got := CanAccess(actor, target, Read); got != want {
					t.Fatalf("%s/%s on %q: expected %v got %v", role, dep, target.Department, want, got)
				}
			}
		}
	}
}

func TestDirectorOtherDepartmentCandidateDenied(t *testing.T) {
	actor := Actor{ID: "d", Role: RoleDiretorComercial, Department: "Comercial"}
	target := Target{Kind: KindCandidate, Department: "Marketing", Responsible: []string{"d"}}
	if CanAccess(actor, target, Read) {
		t.Fatal("director must not read candidates of another department")
	}
}

func TestBrokerTeamMembership(t *testing.T) {
	broker := Actor{ID: "b", Role: RoleBroker, Department: "Comercial", Team: []string{"c1", "c2"}}

	tests := []struct {
		name   string
		target Target
		want   bool
	}{
		{"own candidate", Target{Kind: KindCandidate, Responsible: []string{"b"}}, true},
		{"team candidate", Target{Kind: KindCandidate, Responsible: []string{"x", "c2"}}, true},
		{"foreign candidate", Target{Kind: KindCandidate, Department: "Comercial", Responsible: []string{"x"}}, false},
		{"team analysis", Target{Kind: KindCVAnalysis, OwnerID: "c1"}, true},
		{"team task observer", Target{Kind: KindTask, OwnerID: "x", Observers: []string{"c1"}}, true},
		{"team user", Target{Kind: KindUser, SubjectID: "c9", BrokerID: "b"}, true},
		{"other user", Target{Kind: KindUser, SubjectID: "c9", BrokerID: "b2"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccess(broker, tc.target, Read); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestIndividualContributor(t *testing.T) {
	rec := Actor{ID: "r", Role: RoleRecrutador, Department: "RH"}

	if !CanAccess(rec, Target{Kind: KindCandidate, Department: "RH", Responsible: []string{"r"}}, Write) {
		t.Fatal("active responsible must write")
	}
	if CanAccess(rec, Target{Kind: KindCandidate, Department: "RH", Responsible: []string{"other"}}, Read) {
		t.Fatal("same department is not enough for individuals")
	}
	for _, task := range []Target{
		{Kind: KindTask, OwnerID: "r"},
		{Kind: KindTask, AssigneeID: "r"},
		{Kind: KindTask, Responsible: []string{"r"}},
		{Kind: KindTask, Observers: []string{"r"}},
	} {
		if !CanAccess(rec, task, Read) {
			t.Fatalf("task link must grant access: %+v", task)
		}
	}
	if !CanAccess(rec, Target{Kind: KindCVAnalysis, OwnerID: "r"}, Write) {
		t.Fatal("owner must write analysis")
	}
}

func TestMalformedActorDenied(t *testing.T) {
	actor := Actor{ID: "m", Role: RoleRecrutador}
	if !actor.Malformed() {
		t.Fatal("expected malformed actor")
	}
	if CanAccess(actor, Target{Kind: KindCandidate, Responsible: []string{"m"}}, Read) {
		t.Fatal("malformed actor must be denied")
	}
	if ScopeFor(actor).Kind != ScopeNone {
		t.Fatal("malformed actor must have empty scope")
	}
	if ScopeFor(Actor{ID: "x", Role: "Estagiário", Department: "RH"}).Kind != ScopeNone {
		t.Fatal("unknown role must have empty scope")
	}
}

func TestAppointmentWriteOnlyOrganizer(t *testing.T) {
	target := Target{Kind: KindAppointment, OwnerID: "org", Responsible: []string{"p1"}}
	if !CanAccess(Actor{ID: "p1", Role: RoleEmployee, Department: "RH"}, target, Read) {
		t.Fatal("participant must read")
	}
	if CanAccess(Actor{ID: "p1", Role: RoleEmployee, Department: "RH"}, target, Write) {
		t.Fatal("participant must not write")
	}
	if CanAccess(Actor{ID: "a", Role: RoleAdmin}, target, Write) {
		t.Fatal("only the organizer writes appointments")
	}
	if !CanAccess(Actor{ID: "org", Role: RoleEmployee, Department: "RH"}, target, Write) {
		t.Fatal("organizer must write")
	}
}

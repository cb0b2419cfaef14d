package access

import (
	"testing"

	"github.com/bigkaa/ecoportal/internal/domain/model"
)

func profile(role string, active bool) *model.Profile {
	return &model.Profile{UserID: "u-admin", Role: role, Active: active}
}

func TestDecide(t *testing.T) {
	id := &Identity{Subject: "u-admin"}

	tests := []struct {
		name     string
		identity *Identity
		lookup   ProfileLookup
		want     Decision
	}{
		{"нет идентичности, профиль не загружен", nil, NotLoaded(), Unauthorized},
		{"нет идентичности, активный админ", nil, Found(profile(model.RoleAdmin, true)), Unauthorized},
		{"нет идентичности, профиля нет", nil, NotFound(), Unauthorized},
		{"пустой subject", &Identity{}, Found(profile(model.RoleAdmin, true)), Unauthorized},
		{"идентичность есть, профиль не загружен", id, NotLoaded(), Pending},
		{"профиля нет", id, NotFound(), Unauthorized},
		{"активный пользователь", id, Found(profile(model.RoleUser, true)), Unauthorized},
		{"неактивный админ", id, Found(profile(model.RoleAdmin, false)), Unauthorized},
		{"неактивный пользователь", id, Found(profile(model.RoleUser, false)), Unauthorized},
		{"неизвестная роль", id, Found(profile("superuser", true)), Unauthorized},
		{"активный админ", id, Found(profile(model.RoleAdmin, true)), Authorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.identity, tt.lookup); got != tt.want {
				t.Errorf("Decide() = %q, ожидается %q", got, tt.want)
			}
		})
	}
}

// TestDecide_AuthorizedOnlyForActiveAdmin перебирает все комбинации входов:
// authorized возможен только при идентичности, загруженном профиле, роли admin и active.
func TestDecide_AuthorizedOnlyForActiveAdmin(t *testing.T) {
	identities := []*Identity{nil, {Subject: "u1"}}
	lookups := []ProfileLookup{NotLoaded(), NotFound()}
	for _, role := range []string{model.RoleAdmin, model.RoleUser} {
		for _, active := range []bool{true, false} {
			lookups = append(lookups, Found(&model.Profile{UserID: "u1", Role: role, Active: active}))
		}
	}

	for _, id := range identities {
		for _, l := range lookups {
			got := Decide(id, l)
			want := id != nil && l.Loaded && l.Profile != nil &&
				l.Profile.Role == model.RoleAdmin && l.Profile.Active
			if (got == Authorized) != want {
				t.Errorf("Decide(%v, %+v) = %q", id, l, got)
			}
			if id == nil && got != Unauthorized {
				t.Errorf("без идентичности получено %q", got)
			}
		}
	}
}

func TestGate_Evaluate(t *testing.T) {
	var gate Gate
	id := &Identity{Subject: "u-admin", Email: "admin@example.com"}

	d, grant := gate.Evaluate(id, Found(profile(model.RoleAdmin, true)))
	if d != Authorized || grant == nil {
		t.Fatalf("Evaluate() = %q, grant=%v; ожидается authorized с grant", d, grant)
	}
	if grant.Actor().Subject != "u-admin" || grant.Actor().Email != "admin@example.com" {
		t.Errorf("Actor() = %+v", grant.Actor())
	}
	if grant.Profile().Role != model.RoleAdmin {
		t.Errorf("Profile().Role = %q", grant.Profile().Role)
	}

	for _, lookup := range []ProfileLookup{NotLoaded(), NotFound(), Found(profile(model.RoleUser, true))} {
		d, grant := gate.Evaluate(id, lookup)
		if d == Authorized {
			t.Errorf("Evaluate(%+v) = authorized", lookup)
		}
		if grant != nil {
			t.Errorf("Evaluate(%+v) выдал grant при решении %q", lookup, d)
		}
	}
}

func TestGate_EvaluateCopiesProfile(t *testing.T) {
	p := profile(model.RoleAdmin, true)
	_, grant := Gate{}.Evaluate(&Identity{Subject: "u-admin"}, Found(p))
	p.Active = false
	if !grant.Profile().Active {
		t.Error("изменение исходного профиля повлияло на grant")
	}
}

func TestCanModify(t *testing.T) {
	_, grant := Gate{}.Evaluate(&Identity{Subject: "u-admin"}, Found(profile(model.RoleAdmin, true)))

	tests := []struct {
		name   string
		grant  *Grant
		target string
		want   bool
	}{
		{"чужой профиль", grant, "u-other", true},
		{"собственный профиль", grant, "u-admin", false},
		{"пустая цель", grant, "", false},
		{"нет grant", nil, "u-other", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanModify(tt.grant, tt.target); got != tt.want {
				t.Errorf("CanModify(%q) = %v, ожидается %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestValidRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{"admin", true},
		{"user", true},
		{"Admin", false},
		{"readonly", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidRole(tt.role); got != tt.want {
			t.Errorf("ValidRole(%q) = %v, ожидается %v", tt.role, got, tt.want)
		}
	}
}

package subscription

import (
	"testing"

	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/store"
)

func wiDesc(t *testing.T) *domain.ClassDescriptor {
	t.Helper()
	desc, err := domain.DefaultClasses().Resolve(domain.ClassWorkInstruction)
	if err != nil {
		t.Fatalf("resolve WorkInstruction: %v", err)
	}
	return desc
}

func wiRepo(t *testing.T) store.Repository {
	t.Helper()
	m := store.NewMemory(domain.DefaultClasses())
	repo, err := m.Resolve(domain.ClassWorkInstruction, "org-a")
	if err != nil {
		t.Fatalf("resolve repo: %v", err)
	}
	return repo
}

func TestByID_Matches(t *testing.T) {
	sub := NewByID("sess-1", wiDesc(t), []string{"wi-1", "wi-2"}, nil)

	tests := []struct {
		name string
		ref  domain.Ref
		want bool
	}{
		{"Member", domain.Ref{Class: domain.ClassWorkInstruction, ID: "wi-1"}, true},
		{"NonMember", domain.Ref{Class: domain.ClassWorkInstruction, ID: "wi-9"}, false},
		{"OtherClass", domain.Ref{Class: domain.ClassChe, ID: "wi-1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sub.Matches(tt.ref, domain.Update)
			if err != nil {
				t.Fatalf("Matches: %v", err)
			}
			if got != tt.want {
				t.Errorf("Matches(%s) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestByID_MatchesDeletes(t *testing.T) {
	sub := NewByID("sess-1", wiDesc(t), []string{"wi-1"}, nil)

	got, err := sub.Matches(domain.Ref{Class: domain.ClassWorkInstruction, ID: "wi-1"}, domain.Delete)
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if !got {
		t.Error("delete of a watched id should match")
	}
}

func TestProject(t *testing.T) {
	sub := NewByID("sess-1", wiDesc(t), []string{"wi-1"}, []string{"status", "zone", "bogus"})

	props := sub.Project(&domain.WorkInstruction{
		ID: "wi-1", OrgID: "org-a", Status: domain.WIActive, Zone: "B2", Sequence: 3,
	})

	if props["status"] != domain.WIActive {
		t.Errorf("status: got %v", props["status"])
	}
	if props["zone"] != "B2" {
		t.Errorf("zone: got %v", props["zone"])
	}
	// Unknown names are skipped; undeclared properties never leak through.
	if _, ok := props["bogus"]; ok {
		t.Error("unknown property should be skipped")
	}
	if _, ok := props["sequence"]; ok {
		t.Error("undeclared property must not be projected")
	}
}

func TestByFilter_InitialResultsAndMatches(t *testing.T) {
	repo := wiRepo(t)
	repo.Store(&domain.WorkInstruction{ID: "wi-1", OrgID: "org-a", Zone: "A1", Status: domain.WINew})
	repo.Store(&domain.WorkInstruction{ID: "wi-2", OrgID: "org-a", Zone: "B1", Status: domain.WINew})

	sub, initial, err := NewByFilter("sess-1", wiDesc(t), repo,
		"zone = :z", map[string]any{"z": "A1"}, []string{"status"}, 100)
	if err != nil {
		t.Fatalf("NewByFilter: %v", err)
	}
	if len(initial) != 1 || initial[0].Ref().ID != "wi-1" {
		t.Fatalf("initial results: got %v", initial)
	}

	// wi-2 moves into the watched zone.
	repo.Store(&domain.WorkInstruction{ID: "wi-2", OrgID: "org-a", Zone: "A1", Status: domain.WINew})
	got, err := sub.Matches(domain.Ref{Class: domain.ClassWorkInstruction, ID: "wi-2"}, domain.Update)
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if !got {
		t.Error("object entering the filter should match")
	}

	// wi-1 leaves the zone.
	repo.Store(&domain.WorkInstruction{ID: "wi-1", OrgID: "org-a", Zone: "C9", Status: domain.WINew})
	got, err = sub.Matches(domain.Ref{Class: domain.ClassWorkInstruction, ID: "wi-1"}, domain.Update)
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if got {
		t.Error("object leaving the filter should not match an update")
	}
}

func TestByFilter_DeleteOfPreviousMatch(t *testing.T) {
	repo := wiRepo(t)
	repo.Store(&domain.WorkInstruction{ID: "wi-1", OrgID: "org-a", Zone: "A1", Status: domain.WINew})

	sub, _, err := NewByFilter("sess-1", wiDesc(t), repo,
		"zone = :z", map[string]any{"z": "A1"}, nil, 100)
	if err != nil {
		t.Fatalf("NewByFilter: %v", err)
	}

	repo.Delete("wi-1")
	got, err := sub.Matches(domain.Ref{Class: domain.ClassWorkInstruction, ID: "wi-1"}, domain.Delete)
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if !got {
		t.Error("delete of a previously matching object should notify")
	}

	// The seen entry is consumed; a second delete of the same id is silent.
	got, _ = sub.Matches(domain.Ref{Class: domain.ClassWorkInstruction, ID: "wi-1"}, domain.Delete)
	if got {
		t.Error("repeated delete should not match again")
	}
}

func TestByFilter_BadClauseFailsRegistration(t *testing.T) {
	if _, _, err := NewByFilter("sess-1", wiDesc(t), wiRepo(t), "nope ~ :x", nil, nil, 100); err == nil {
		t.Fatal("bad clause must fail registration")
	}
}

func TestIndex_AddRemove(t *testing.T) {
	x := NewIndex()
	desc := wiDesc(t)
	a := NewByID("sess-1", desc, []string{"wi-1"}, nil)
	b := NewByID("sess-2", desc, []string{"wi-2"}, nil)
	x.Add(a)
	x.Add(b)

	if x.Count() != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", x.Count())
	}
	if got := x.ForClass(domain.ClassWorkInstruction); len(got) != 2 {
		t.Fatalf("ForClass: expected 2, got %d", len(got))
	}
	if got := x.ForClass(domain.ClassChe); len(got) != 0 {
		t.Errorf("ForClass(Che): expected 0, got %d", len(got))
	}

	// Ownership: sess-2 cannot remove sess-1's subscription.
	if x.Remove("sess-2", a.ID()) {
		t.Error("remove by non-owner should fail")
	}
	if !x.Remove("sess-1", a.ID()) {
		t.Error("remove by owner should succeed")
	}
	if x.Remove("sess-1", a.ID()) {
		t.Error("second remove should fail")
	}
	if x.Count() != 1 {
		t.Errorf("expected 1 subscription, got %d", x.Count())
	}
}

func TestIndex_RemoveSession(t *testing.T) {
	x := NewIndex()
	desc := wiDesc(t)
	x.Add(NewByID("sess-1", desc, []string{"wi-1"}, nil))
	x.Add(NewByID("sess-1", desc, []string{"wi-2"}, nil))
	survivor := NewByID("sess-2", desc, []string{"wi-3"}, nil)
	x.Add(survivor)

	x.RemoveSession("sess-1")
	if x.Count() != 1 {
		t.Fatalf("expected 1 subscription, got %d", x.Count())
	}
	subs := x.ForClass(domain.ClassWorkInstruction)
	if len(subs) != 1 || subs[0].ID() != survivor.ID() {
		t.Error("other sessions' subscriptions must survive")
	}

	x.RemoveSession("sess-1") // idempotent
	x.RemoveSession("never-registered")
	if x.Count() != 1 {
		t.Errorf("expected 1 subscription, got %d", x.Count())
	}
}

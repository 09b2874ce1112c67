package resolver

import "testing"

func TestSelector_PopulateReplacesWholesale(t *testing.T) {
	s := NewSelector()
	s.Populate([]Option{{Name: "a"}, {Name: "b"}})
	if err := s.Select("b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	s.Populate([]Option{{Name: "b"}, {Name: "c"}})
	if s.Selected() != "b" {
		t.Fatalf("selected=%q want b kept", s.Selected())
	}
	s.Populate([]Option{{Name: "x"}})
	if got := s.Options(); len(got) != 1 || got[0].Name != "x" {
		t.Fatalf("options=%+v", got)
	}
	if s.Selected() != "x" {
		t.Fatalf("selected=%q want x", s.Selected())
	}
}

func TestSelector_SelectRejectsUnknownAndDisabled(t *testing.T) {
	s := NewSelector()
	s.Populate([]Option{{Name: "off", Disabled: true}, {Name: "on"}})
	if err := s.Select("off"); err == nil {
		t.Fatal("expected error selecting disabled option")
	}
	if err := s.Select("nope"); err == nil {
		t.Fatal("expected error selecting unknown option")
	}
	if s.Selected() != "on" {
		t.Fatalf("selected=%q", s.Selected())
	}
}

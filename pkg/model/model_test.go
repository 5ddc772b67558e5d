package model

import (
	"errors"
	"strings"
	"testing"
)

func TestNodeID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Alice", "Alice"},
		{"  Alice Smith  ", "Alice_Smith"},
		{"Jean-Luc Picard", "JeanLuc_Picard"},
		{"Conan O’Brien", "Conan_OBrien"},
		{"Conan O‘Brien", "Conan_OBrien"},
		{"Mary Ann Lee-Smith", "Mary_Ann_LeeSmith"},
	}

	for _, tt := range tests {
		got := NodeID(tt.name)
		if got != tt.want {
			t.Errorf("NodeID(%q) = %q, want %q", tt.name, got, tt.want)
		}

		if again := NodeID(got); again != got {
			t.Errorf("NodeID is not idempotent for %q: %q -> %q", tt.name, got, again)
		}

		if strings.ContainsAny(got, " -‘’") {
			t.Errorf("NodeID(%q) = %q contains excluded characters", tt.name, got)
		}
	}
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Alice", true},
		{"Jean-Luc Picard", true},
		{"Conan O’Brien", true},
		{"Zoë Ångström", true},
		{"Bob <script>", false},
		{"Alice & Bob", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidName(tt.name); got != tt.want {
			t.Errorf("ValidName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseDMU(t *testing.T) {
	tests := []struct {
		input  string
		want   DMU
		wantOK bool
	}{
		{"D", DMUDecisionMaker, true},
		{"decision maker", DMUDecisionMaker, true},
		{" dm ", DMUDecisionMaker, true},
		{"buy", DMUBuyer, true},
		{"Influencer", DMUInfluencer, true},
		{"g", DMUGatekeeper, true},
		{"USER", DMUUser, true},
		{"boss", DMUUser, false},
		{"", DMUUser, false},
	}

	for _, tt := range tests {
		got, ok := ParseDMU(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseDMU(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		input  string
		want   Sentiment
		wantOK bool
	}{
		{"P", SentimentProponent, true},
		{"promotor", SentimentProponent, true},
		{"Promoter", SentimentProponent, true},
		{"proponent", SentimentProponent, true},
		{"o", SentimentOpponent, true},
		{"Neutral", SentimentNeutral, true},
		{"grumpy", SentimentNeutral, false},
	}

	for _, tt := range tests {
		got, ok := ParseSentiment(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseSentiment(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseInfluence(t *testing.T) {
	tests := []struct {
		input  string
		want   Influence
		wantOK bool
	}{
		{"", InfluenceNone, true},
		{"Supporter", InfluenceSupporter, true},
		{"promotor", InfluencePromoter, true},
		{"hostile", InfluenceEnemy, true},
		{" internal ", InfluenceInternal, true},
		{" Board Member ", Influence("Board Member"), false},
	}

	for _, tt := range tests {
		got, ok := ParseInfluence(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseInfluence(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}

	if Influence("Board Member").Known() {
		t.Error("free text influence should not be known")
	}
	for _, c := range InfluenceCategories {
		if !c.Known() {
			t.Errorf("category %q should be known", c)
		}
	}
}

func TestPersonDefaults(t *testing.T) {
	p := NewPerson("  Alice Smith ")

	if p.FullName != "Alice Smith" {
		t.Errorf("FullName = %q, want trimmed name", p.FullName)
	}
	if p.NodeID != "Alice_Smith" {
		t.Errorf("NodeID = %q", p.NodeID)
	}
	if p.Team != UnsetTeam || p.DMU != DMUUser || p.Sentiment != SentimentNeutral || p.Influence != InfluenceNone {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestPersonSettersFallBackToDefaults(t *testing.T) {
	p := NewPerson("Alice")

	if !p.SetDMU("D") || p.DMU != DMUDecisionMaker {
		t.Fatalf("SetDMU(D) failed: %q", p.DMU)
	}
	if p.SetDMU("chief") {
		t.Error("SetDMU(chief) should report failure")
	}
	if p.DMU != DMUUser {
		t.Errorf("DMU after unknown value = %q, want default", p.DMU)
	}

	p.SetSentiment("O")
	if p.SetSentiment("meh") || p.Sentiment != SentimentNeutral {
		t.Errorf("Sentiment after unknown value = %q, want default", p.Sentiment)
	}
}

func TestPersonAttribute(t *testing.T) {
	p := NewPerson("Alice")
	p.Team = "Eng"
	p.SetDMU("B")
	p.SetAttribute("title", " R&D | Lead ")
	p.SetAttribute("blank", "   ")

	tests := []struct {
		key  string
		want string
	}{
		{"title", "R&amp;D   Lead"},
		{"blank", "Unknown: blank"},
		{"country", "Unknown: country"},
		{"team", "Eng"},
		{"name", "Alice"},
		{"dmu", "Buyer"},
		{"sentiment", "Neutral"},
		{"influence", "Unknown: influence"},
	}

	for _, tt := range tests {
		if got := p.Attribute(tt.key); got != tt.want {
			t.Errorf("Attribute(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}

	if p.HasAttribute("team") {
		t.Error("HasAttribute should only report free-form attributes")
	}

	p.SetAttribute("team", "Shadow")
	if got := p.Attribute("team"); got != "Shadow" {
		t.Errorf("free-form attribute should shadow field, got %q", got)
	}
}

func TestOrganization(t *testing.T) {
	org := NewOrganization()
	if org.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", org.Title, DefaultTitle)
	}

	alice := org.AddPerson("Alice")
	org.AddPerson("Bob")
	org.AssignTeam(alice, "Eng")
	org.AddTeam("Sales")
	org.AddTeam("Eng")
	org.AddConnection(alice, "supports", "Bob")

	if got := org.Teams(); len(got) != 2 || got[0] != "Eng" || got[1] != "Sales" {
		t.Errorf("Teams() = %v", got)
	}
	if edges := org.Edges(); len(edges) != 1 || edges[0] != (Edge{"Alice", "supports", "Bob"}) {
		t.Errorf("Edges() = %v", edges)
	}

	// Redeclaring keeps the first position but replaces the person
	replacement := org.AddPerson("Alice")
	people := org.People()
	if len(people) != 2 || people[0] != replacement || people[1].FullName != "Bob" {
		t.Errorf("People() after redeclare = %v", people)
	}
	if replacement.Team != UnsetTeam {
		t.Errorf("redeclared person should start fresh, team = %q", replacement.Team)
	}
}

func TestFindPerson(t *testing.T) {
	org := NewOrganization()
	org.AddPerson("Alice")
	bob := org.AddPerson("Robert Jones")
	bob.SetAttribute("id", "Bob")

	p, err := org.FindPerson("Bob")
	if err != nil || p != bob {
		t.Fatalf("FindPerson(Bob) = %v, %v; want lookup by id attribute", p, err)
	}

	p, err = org.FindPerson("Alice")
	if err != nil || p.FullName != "Alice" {
		t.Fatalf("FindPerson(Alice) = %v, %v", p, err)
	}

	_, err = org.FindPerson("Carol")
	if !errors.Is(err, ErrPersonNotFound) {
		t.Errorf("FindPerson(Carol) error = %v, want ErrPersonNotFound", err)
	}
}

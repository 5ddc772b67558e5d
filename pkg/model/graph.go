package model

import (
	"errors"
	"fmt"
)

// DefaultTitle is used when the outline has no @title directive.
const DefaultTitle = "Untitled Organization"

// ErrPersonNotFound is returned when a reference cannot be resolved to a person.
var ErrPersonNotFound = errors.New("person not found")

// Edge represents a directed relationship between two people.
// Destination is a node ID that may not exist yet; it is resolved at render time.
type Edge struct {
	Origin      string `json:"origin"`
	Type        string `json:"type"`
	Destination string `json:"destination"`
}

// Organization is the in-memory model built from an outline document.
// It owns every person and edge. People keep the order in which their
// node ID was first declared.
type Organization struct {
	Title string

	people  map[string]*Person
	order   []string
	edges   []Edge
	teams   []string
	teamSet map[string]bool
}

// NewOrganization creates an empty organization.
func NewOrganization() *Organization {
	return &Organization{
		Title:   DefaultTitle,
		people:  make(map[string]*Person),
		teamSet: make(map[string]bool),
	}
}

// AddPerson declares a person. A person with the same node ID is replaced
// but keeps its original position.
func (o *Organization) AddPerson(fullName string) *Person {
	person := NewPerson(fullName)
	if _, exists := o.people[person.NodeID]; !exists {
		o.order = append(o.order, person.NodeID)
	}
	o.people[person.NodeID] = person
	return person
}

// AddTeam registers a team name.
func (o *Organization) AddTeam(team string) {
	if o.teamSet[team] {
		return
	}
	o.teamSet[team] = true
	o.teams = append(o.teams, team)
}

// AssignTeam sets the person's team and registers it.
func (o *Organization) AssignTeam(p *Person, team string) {
	o.AddTeam(team)
	p.Team = team
}

// AddConnection records an edge from origin to the person named destination.
func (o *Organization) AddConnection(origin *Person, edgeType, destination string) Edge {
	edge := Edge{
		Origin:      origin.NodeID,
		Type:        edgeType,
		Destination: NodeID(destination),
	}
	o.edges = append(o.edges, edge)
	return edge
}

// Person returns the person with the given node ID.
func (o *Organization) Person(nodeID string) (*Person, bool) {
	p, ok := o.people[nodeID]
	return p, ok
}

// People returns all people in declaration order.
func (o *Organization) People() []*Person {
	people := make([]*Person, 0, len(o.order))
	for _, id := range o.order {
		people = append(people, o.people[id])
	}
	return people
}

// Edges returns all edges in declaration order.
func (o *Organization) Edges() []Edge {
	return append([]Edge(nil), o.edges...)
}

// Teams returns all team names in order of first assignment.
func (o *Organization) Teams() []string {
	return append([]string(nil), o.teams...)
}

// FindPerson resolves a reference used by an edge. A person whose "id"
// attribute equals ref wins over a person whose node ID equals ref.
func (o *Organization) FindPerson(ref string) (*Person, error) {
	for _, id := range o.order {
		p := o.people[id]
		if v, ok := p.Attributes["id"]; ok && v == ref {
			return p, nil
		}
	}
	if p, ok := o.people[ref]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPersonNotFound, ref)
}

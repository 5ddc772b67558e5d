package model

import (
	"regexp"
	"strings"
)

// UnsetTeam is the team of a person that never had a team line.
const UnsetTeam = "??"

// DMU is a person's role in the decision making unit of a procurement.
type DMU string

const (
	DMUDecisionMaker DMU = "D"
	DMUBuyer         DMU = "B"
	DMUInfluencer    DMU = "I"
	DMUGatekeeper    DMU = "G"
	DMUUser          DMU = "U"
)

var dmuAliases = map[string]DMU{
	"D":              DMUDecisionMaker,
	"DECISION MAKER": DMUDecisionMaker,
	"DM":             DMUDecisionMaker,
	"B":              DMUBuyer,
	"BUYER":          DMUBuyer,
	"BUY":            DMUBuyer,
	"I":              DMUInfluencer,
	"INFLUENCER":     DMUInfluencer,
	"G":              DMUGatekeeper,
	"GATEKEEPER":     DMUGatekeeper,
	"U":              DMUUser,
	"USER":           DMUUser,
}

// ParseDMU looks up a DMU by any of its case-insensitive aliases.
// Unknown input yields DMUUser and false.
func ParseDMU(s string) (DMU, bool) {
	if d, ok := dmuAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return d, true
	}
	return DMUUser, false
}

// Description returns the human readable name used in node labels
func (d DMU) Description() string {
	switch d {
	case DMUDecisionMaker:
		return "Decision Maker"
	case DMUBuyer:
		return "Buyer"
	case DMUInfluencer:
		return "Influencer"
	case DMUGatekeeper:
		return "Gatekeeper"
	case DMUUser:
		return "User"
	}
	return "dmu?"
}

// Sentiment is how a person feels about the deal.
type Sentiment string

const (
	SentimentProponent Sentiment = "P"
	SentimentNeutral   Sentiment = "N"
	SentimentOpponent  Sentiment = "O"
)

var sentimentAliases = map[string]Sentiment{
	"P":         SentimentProponent,
	"PROMOTOR":  SentimentProponent,
	"PROMOTER":  SentimentProponent,
	"PROPONENT": SentimentProponent,
	"N":         SentimentNeutral,
	"NEUTRAL":   SentimentNeutral,
	"O":         SentimentOpponent,
	"OPPONENT":  SentimentOpponent,
}

// ParseSentiment looks up a Sentiment by any of its case-insensitive aliases.
// Unknown input yields SentimentNeutral and false.
func ParseSentiment(s string) (Sentiment, bool) {
	if v, ok := sentimentAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return v, true
	}
	return SentimentNeutral, false
}

// Description returns the human readable name used in node labels
func (s Sentiment) Description() string {
	switch s {
	case SentimentProponent:
		return "Proponent"
	case SentimentNeutral:
		return "Neutral"
	case SentimentOpponent:
		return "Opponent"
	}
	return "sentiment?"
}

// Influence classifies a person's influence on the deal. Values outside the
// known categories are kept as free text.
type Influence string

const (
	InfluenceNone      Influence = ""
	InfluenceSupporter Influence = "supporter"
	InfluencePromoter  Influence = "promoter"
	InfluenceEnemy     Influence = "enemy"
	InfluenceInternal  Influence = "internal"
)

// InfluenceCategories lists the known categories in legend order.
var InfluenceCategories = []Influence{
	InfluenceSupporter,
	InfluencePromoter,
	InfluenceEnemy,
	InfluenceInternal,
}

var influenceAliases = map[string]Influence{
	"":          InfluenceNone,
	"SUPPORTER": InfluenceSupporter,
	"SUPPORT":   InfluenceSupporter,
	"PROMOTER":  InfluencePromoter,
	"PROMOTOR":  InfluencePromoter,
	"ENEMY":     InfluenceEnemy,
	"HOSTILE":   InfluenceEnemy,
	"INTERNAL":  InfluenceInternal,
}

// ParseInfluence maps an alias onto a known category. Unknown input is
// returned trimmed and verbatim together with false.
func ParseInfluence(s string) (Influence, bool) {
	s = strings.TrimSpace(s)
	if v, ok := influenceAliases[strings.ToUpper(s)]; ok {
		return v, true
	}
	return Influence(s), false
}

// Known reports whether i is empty or one of InfluenceCategories.
func (i Influence) Known() bool {
	if i == InfluenceNone {
		return true
	}
	for _, c := range InfluenceCategories {
		if i == c {
			return true
		}
	}
	return false
}

var validName = regexp.MustCompile(`^[\p{L}\p{N}_\- ‘’]+$`)

// ValidName reports whether a full name only uses letters, digits,
// underscores, hyphens, spaces and typographic single quotes.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

var nodeIDReplacer = strings.NewReplacer(
	" ", "_",
	"-", "",
	"‘", "",
	"’", "",
)

// NodeID derives the graph node identifier for a full name.
func NodeID(name string) string {
	return nodeIDReplacer.Replace(strings.TrimSpace(name))
}

// Person is a single entry of the outline.
type Person struct {
	FullName   string            `json:"fullName"`
	NodeID     string            `json:"nodeId"`
	Team       string            `json:"team"`
	Influence  Influence         `json:"influence,omitempty"`
	DMU        DMU               `json:"dmu"`
	Sentiment  Sentiment         `json:"sentiment"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewPerson creates a person with default classification. The node ID is
// derived here and never recomputed.
func NewPerson(fullName string) *Person {
	fullName = strings.TrimSpace(fullName)
	return &Person{
		FullName:   fullName,
		NodeID:     NodeID(fullName),
		Team:       UnsetTeam,
		DMU:        DMUUser,
		Sentiment:  SentimentNeutral,
		Attributes: make(map[string]string),
	}
}

// SetDMU coerces value into a DMU. On unknown input the DMU is reset to
// DMUUser and false is returned.
func (p *Person) SetDMU(value string) bool {
	d, ok := ParseDMU(value)
	p.DMU = d
	return ok
}

// SetSentiment coerces value into a Sentiment. On unknown input the
// sentiment is reset to SentimentNeutral and false is returned.
func (p *Person) SetSentiment(value string) bool {
	s, ok := ParseSentiment(value)
	p.Sentiment = s
	return ok
}

// SetInfluence stores the canonical category for value, or value itself
// when it is not a known category.
func (p *Person) SetInfluence(value string) bool {
	i, ok := ParseInfluence(value)
	p.Influence = i
	return ok
}

// SetAttribute stores a free-form attribute.
func (p *Person) SetAttribute(key, value string) {
	p.Attributes[key] = value
}

// HasAttribute reports whether a free-form attribute is set.
func (p *Person) HasAttribute(key string) bool {
	_, ok := p.Attributes[key]
	return ok
}

// Attribute returns the value of key as it appears in a rendered label.
// Free-form attributes take precedence over the built-in fields name, team,
// influence, dmu and sentiment. Missing or blank values yield
// "Unknown: <key>".
func (p *Person) Attribute(key string) string {
	raw, ok := p.Attributes[key]
	if !ok {
		raw, ok = p.field(key)
	}
	if ok {
		v := strings.ReplaceAll(raw, "&", "&amp;")
		v = strings.ReplaceAll(v, "|", " ")
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return "Unknown: " + key
}

func (p *Person) field(key string) (string, bool) {
	switch key {
	case "name":
		return p.FullName, true
	case "team":
		return p.Team, true
	case "influence":
		return string(p.Influence), true
	case "dmu":
		return p.DMU.Description(), true
	case "sentiment":
		return p.Sentiment.Description(), true
	}
	return "", false
}

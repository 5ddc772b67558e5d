package render

import (
	"fmt"
	"strings"

	"github.com/ritzau/orgviz/pkg/model"
)

// Style selects how person nodes are decorated.
type Style int

const (
	// StyleNone renders plain nodes.
	StyleNone Style = iota
	// StyleDMUSentiment adds a DMU/sentiment row to each node.
	StyleDMUSentiment
	// StyleInfluence fills nodes by influence and draws a legend.
	StyleInfluence
)

// ParseStyle accepts the command line names (DS, inf, none) and the long names.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return StyleNone, nil
	case "ds", "dmu-sentiment":
		return StyleDMUSentiment, nil
	case "inf", "influence":
		return StyleInfluence, nil
	}
	return StyleNone, fmt.Errorf("unknown visualization type %q", s)
}

func (s Style) String() string {
	switch s {
	case StyleDMUSentiment:
		return "dmu-sentiment"
	case StyleInfluence:
		return "influence"
	}
	return "none"
}

const defaultFill = "fillcolor=white, style=filled"

var influenceFills = map[model.Influence]string{
	model.InfluenceSupporter: "fillcolor=skyblue, style=filled",
	model.InfluencePromoter:  "fillcolor=GreenYellow, style=filled",
	model.InfluenceEnemy:     "fillcolor=salmon, style=filled",
	model.InfluenceInternal:  "fillcolor=black, style=filled, fontcolor=white",
}

var dmuColors = map[model.DMU]string{
	model.DMUDecisionMaker: "green",
	model.DMUInfluencer:    "skyblue",
	model.DMUBuyer:         "purple",
	model.DMUGatekeeper:    "pink",
	model.DMUUser:          "gray",
}

var sentimentColors = map[model.Sentiment]string{
	model.SentimentProponent: "green",
	model.SentimentNeutral:   "yellow",
	model.SentimentOpponent:  "pink",
}

func colorOr(c string, ok bool) string {
	if !ok {
		return "white"
	}
	return c
}

func dmuColor(d model.DMU) string {
	c, ok := dmuColors[d]
	return colorOr(c, ok)
}

func sentimentColor(s model.Sentiment) string {
	c, ok := sentimentColors[s]
	return colorOr(c, ok)
}

func edgeStyle(edgeType string) string {
	if edgeType == "supports" {
		return "style=dotted"
	}
	return ""
}

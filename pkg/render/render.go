package render

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ritzau/orgviz/pkg/filter"
	"github.com/ritzau/orgviz/pkg/logging"
	"github.com/ritzau/orgviz/pkg/model"
	"github.com/ritzau/orgviz/pkg/pictures"
)

// ErrUnresolvedReference is returned when an edge endpoint does not resolve
// to a person. It points at a broken reference in the outline.
var ErrUnresolvedReference = errors.New("unresolved reference")

// Options control the layout of the generated DOT document.
type Options struct {
	Style           Style
	SkipTitle       bool
	SkipTeams       bool
	SkipLegend      bool
	DPI             int // emitted as graph resolution when > 0
	ProfilePictures bool
}

// Renderer projects an organization onto a DOT digraph. It never modifies
// the organization and holds no per-render state, so one Renderer can be
// shared between goroutines.
type Renderer struct {
	opts     Options
	filter   *filter.Filter
	pictures pictures.Lookup
	log      *slog.Logger
}

// New creates a renderer. f and pics may be nil.
func New(opts Options, f *filter.Filter, pics pictures.Lookup) *Renderer {
	return &Renderer{
		opts:     opts,
		filter:   f,
		pictures: pics,
		log:      logging.New("render"),
	}
}

// Render is a shorthand for New(opts, f, nil).Render(org).
func Render(org *model.Organization, f *filter.Filter, opts Options) (string, error) {
	return New(opts, f, nil).Render(org)
}

// Render returns the DOT document for org.
//
// Team clusters are always declared, even when every member is filtered
// out: dot skips empty clusters, so only the member lists are filtered.
func (r *Renderer) Render(org *model.Organization) (string, error) {
	var b strings.Builder

	b.WriteString("digraph {\n")
	r.writeHeader(&b, org)

	if !r.opts.SkipTeams {
		r.writeTeams(&b, org)
	}

	for _, person := range org.People() {
		if r.filter.IsExcluded(person) {
			continue
		}
		fmt.Fprintf(&b, "%s [margin=0, border=invisible, label=%s, %s]\n",
			dotID(person.NodeID), r.label(person), r.fill(person))
	}

	if err := r.writeEdges(&b, org); err != nil {
		return "", err
	}

	if r.opts.Style == StyleInfluence && !r.opts.SkipLegend {
		writeLegend(&b)
	}

	b.WriteString("}\n")
	return b.String(), nil
}

func (r *Renderer) writeHeader(b *strings.Builder, org *model.Organization) {
	if r.opts.DPI > 0 {
		fmt.Fprintf(b, "graph [dpi=%d]\n", r.opts.DPI)
	}
	if !r.opts.SkipTitle {
		fmt.Fprintf(b, "label=%s\n", quote(org.Title))
		b.WriteString("labelloc=\"t\"\n")
	}
	b.WriteString("fontname=Overpass\n")
	b.WriteString("node [fontname=Overpass, shape=record]\n")
	b.WriteString("edge [fontname=Overpass, fontsize=9]\n")
}

func (r *Renderer) writeTeams(b *strings.Builder, org *model.Organization) {
	people := org.People()

	for i, team := range org.Teams() {
		fmt.Fprintf(b, "subgraph cluster_%d {\n", i+1)
		fmt.Fprintf(b, "label=%s\n", quote(team))
		b.WriteString("style=filled\n")
		b.WriteString("fillcolor=skyblue\n")

		for _, person := range people {
			if person.Team != team || r.filter.IsExcluded(person) {
				continue
			}
			fmt.Fprintf(b, "%s []\n", dotID(person.NodeID))
		}

		b.WriteString("}\n")
	}
}

func (r *Renderer) writeEdges(b *strings.Builder, org *model.Organization) error {
	for _, edge := range org.Edges() {
		origin, err := org.FindPerson(edge.Origin)
		if err != nil {
			return fmt.Errorf("%w: edge %s -[%s]-> %s: %w", ErrUnresolvedReference, edge.Origin, edge.Type, edge.Destination, err)
		}
		destination, err := org.FindPerson(edge.Destination)
		if err != nil {
			return fmt.Errorf("%w: edge %s -[%s]-> %s: %w", ErrUnresolvedReference, edge.Origin, edge.Type, edge.Destination, err)
		}

		if r.filter.IsExcluded(origin) || r.filter.IsExcluded(destination) {
			continue
		}

		attrs := "label=" + quote(edge.Type)
		if style := edgeStyle(edge.Type); style != "" {
			attrs += ", " + style
		}
		fmt.Fprintf(b, "%s -> %s [%s]\n", dotID(origin.NodeID), dotID(destination.NodeID), attrs)
	}
	return nil
}

func (r *Renderer) label(p *model.Person) string {
	var b strings.Builder

	b.WriteString(`<<table border="0" cellspacing="0">`)
	fmt.Fprintf(&b, `<tr><td border="1" colspan="2"><b>%s</b></td></tr>`, html.EscapeString(p.FullName))
	fmt.Fprintf(&b, `<tr><td border="1" colspan="2"><font point-size="9">%s</font></td></tr>`, labelText(p.Attribute("title")))

	if r.opts.ProfilePictures && r.pictures != nil {
		if path, ok := r.pictures.Find(p.FullName); ok {
			r.log.Debug("found profile picture", "path", path)
			fmt.Fprintf(&b, `<tr><td colspan="2" border="1"><img src="%s" /></td></tr>`, html.EscapeString(path))
		} else {
			r.log.Warn("no profile picture found", "person", p.FullName, "path", path)
		}
	}

	if p.HasAttribute("country") {
		fmt.Fprintf(&b, `<tr><td colspan="2">%s</td></tr>`, labelText(p.Attribute("country")))
	}

	if r.opts.Style == StyleDMUSentiment {
		fmt.Fprintf(&b, `<tr><td bgcolor="%s" border="1">%s</td><td bgcolor="%s" border="1">%s</td></tr>`,
			dmuColor(p.DMU), p.DMU.Description(),
			sentimentColor(p.Sentiment), p.Sentiment.Description())
	}

	b.WriteString("</table>>")
	return b.String()
}

func (r *Renderer) fill(p *model.Person) string {
	if r.opts.Style != StyleInfluence {
		return defaultFill
	}

	if fill, ok := influenceFills[p.Influence]; ok {
		return fill
	}
	if p.Influence != model.InfluenceNone {
		r.log.Warn("unknown influence class", "person", p.FullName, "influence", string(p.Influence))
	}
	return defaultFill
}

func writeLegend(b *strings.Builder) {
	b.WriteString("subgraph cluster_00 {\n")
	b.WriteString("label=\"Legend\"\n")
	b.WriteString("fillcolor=beige\n")
	b.WriteString("style=filled\n")
	b.WriteString("node [fontsize=9]\n")
	for _, c := range model.InfluenceCategories {
		fmt.Fprintf(b, "legend_%s [label=%s, %s]\n", c, quote(string(c)), influenceFills[c])
	}
	b.WriteString("}\n")
}

var plainID = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

// dotKeywords are reserved in any letter case and must be quoted to be used as IDs.
var dotKeywords = map[string]bool{
	"node":     true,
	"edge":     true,
	"graph":    true,
	"digraph":  true,
	"subgraph": true,
	"strict":   true,
}

// dotID returns id unchanged when it is a valid bare DOT identifier and
// quoted otherwise.
func dotID(id string) string {
	if plainID.MatchString(id) && !dotKeywords[strings.ToLower(id)] {
		return id
	}
	return quote(id)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}

// labelText escapes markup in attribute values. Ampersands are already
// escaped by model.Person.Attribute.
var labelEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;", `"`, "&quot;")

func labelText(s string) string {
	return labelEscaper.Replace(s)
}

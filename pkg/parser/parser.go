package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ritzau/orgviz/pkg/model"
)

// ErrDetailBeforePerson is returned for an indented line that appears
// before any person has been declared.
var ErrDetailBeforePerson = errors.New("detail line before any person")

// ParseError reports a fatal problem on a specific line of the outline.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Diagnostic is a recoverable problem found while parsing. The parse
// continues with a documented default.
type Diagnostic struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

// Parser turns outline documents into an organization model
type Parser struct{}

// NewParser creates a new outline parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses an outline held in memory.
func ParseString(s string) (*model.Organization, []Diagnostic, error) {
	return NewParser().Parse(strings.NewReader(s))
}

// Parse reads an outline document line by line.
//
// Person lines start at column zero, detail lines (properties and
// connections) are indented with tabs and belong to the last person, and
// "@key: value" lines are document directives.
func (p *Parser) Parse(r io.Reader) (*model.Organization, []Diagnostic, error) {
	s := &parseState{org: model.NewOrganization()}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if err := s.parseLine(lineNo, line); err != nil {
			return nil, s.diagnostics, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, s.diagnostics, fmt.Errorf("reading outline: %w", err)
	}

	return s.org, s.diagnostics, nil
}

type parseState struct {
	org         *model.Organization
	current     *model.Person // last declared person, not owned
	diagnostics []Diagnostic
}

func (s *parseState) warn(line int, format string, args ...any) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}

func (s *parseState) parseLine(lineNo int, line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	if strings.HasPrefix(line, "@") && strings.Contains(line, ":") {
		s.parseDirective(line)
		return nil
	}

	if strings.HasPrefix(line, "\t") {
		if s.current == nil {
			return &ParseError{Line: lineNo, Text: line, Err: ErrDetailBeforePerson}
		}

		detail := strings.TrimSpace(strings.ReplaceAll(line, "\t", ""))
		switch {
		case strings.Contains(detail, "->"):
			s.parseConnection(detail)
		case strings.Contains(detail, ":"):
			s.parseProperty(lineNo, detail)
		default:
			s.warn(lineNo, "cannot parse line: %s", detail)
		}
		return nil
	}

	s.current = s.org.AddPerson(line)
	if !model.ValidName(s.current.FullName) {
		s.warn(lineNo, "person's name contains invalid characters: %s", s.current.FullName)
	}
	return nil
}

// parseDirective handles "@key: value". Unknown keys are ignored so that
// newer documents still parse.
func (s *parseState) parseDirective(line string) {
	key, value, _ := strings.Cut(strings.TrimPrefix(line, "@"), ":")

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "title":
		s.org.Title = strings.TrimSpace(value)
	}
}

func (s *parseState) parseConnection(detail string) {
	edgeType, destination, _ := strings.Cut(detail, "->")
	edgeType = strings.TrimSpace(edgeType)
	destination = strings.TrimSpace(destination)

	if edgeType == "" || destination == "" {
		return
	}

	s.org.AddConnection(s.current, edgeType, destination)
}

func (s *parseState) parseProperty(lineNo int, detail string) {
	key, value, _ := strings.Cut(detail, ":")
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	person := s.current

	switch key {
	case "influence":
		if !person.SetInfluence(value) {
			s.warn(lineNo, "unknown influence for %s: %q, should be supporter, promoter, enemy or internal", person.FullName, value)
		}
	case "sentiment":
		if !person.SetSentiment(value) {
			s.warn(lineNo, "unknown sentiment for %s: %q, should be [P]romoter, [O]pponent or [N]eutral", person.FullName, value)
		}
	case "dmu":
		if !person.SetDMU(value) {
			s.warn(lineNo, "unknown dmu (decision making unit) for %s: %q, should be [D]ecision Maker, [B]uyer, [I]nfluencer, [G]atekeeper or [U]ser", person.FullName, value)
		}
	case "team":
		s.org.AssignTeam(person, value)
	default:
		person.SetAttribute(key, value)
	}
}

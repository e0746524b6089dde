// Package annotator tags domain entities in normalized page text and derives
// relationships and knowledge triplets from them.
//
// Word characters are Unicode letters, digits and underscore. An entity only
// matches where it is not glued to another word character on either side.
package annotator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Entity labels
const (
	LabelSatellite    = "SATELLITE"
	LabelDataProduct  = "DATA_PRODUCT"
	LabelService      = "SERVICE"
	LabelOrganization = "ORGANIZATION"
	LabelMeasurement  = "MEASUREMENT"
)

const (
	entityConfidence   = 0.8
	relationConfidence = 0.75
)

// Annotator tags entities in text. Implementations must be pure and
// deterministic, and must return entities deduplicated case-insensitively.
type Annotator interface {
	Annotate(text string) []Entity
}

// Entity is a labeled span of text
type Entity struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Relationship links two spans through a predicate
type Relationship struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
	SourceText string  `json:"source_text"`
}

// Triplet is a (subject, predicate, object) knowledge fact
type Triplet struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
	Format     string  `json:"triplet_format"`
}

// Document holds every annotation of one text
type Document struct {
	Entities          []Entity       `json:"entities"`
	Relationships     []Relationship `json:"relationships"`
	Triplets          []Triplet      `json:"triplets"`
	EntityCount       int            `json:"entity_count"`
	RelationshipCount int            `json:"relationship_count"`
	TripletCount      int            `json:"triplet_count"`
}

type labeledPattern struct {
	label string
	re    *regexp.Regexp
}

type relationPattern struct {
	predicate string
	re        *regexp.Regexp
}

// PatternAnnotator recognises entities and relationships with regular expressions
type PatternAnnotator struct {
	entities  []labeledPattern
	relations []relationPattern
}

// NewPatternAnnotator returns an annotator loaded with the satellite-domain patterns
func NewPatternAnnotator() *PatternAnnotator {
	entity := func(label string, exprs ...string) []labeledPattern {
		out := make([]labeledPattern, 0, len(exprs))
		for _, e := range exprs {
			out = append(out, labeledPattern{label: label, re: compile(e)})
		}
		return out
	}

	var entities []labeledPattern
	entities = append(entities, entity(LabelSatellite,
		`\b(INSAT-\w+|SCATSAT-\w+|RISAT-\w+|CARTOSAT-\w+|RESOURCESAT-\w+)\b`,
		`\b(Meteosat|GOES|NOAA-\w+|Himawari-\w+)\b`,
	)...)
	entities = append(entities, entity(LabelDataProduct,
		`\b(atmospheric\s+(?:data|profile|sounding))\b`,
		`\b(temperature\s+(?:profile|data|measurement))\b`,
		`\b(humidity\s+(?:profile|data|measurement))\b`,
		`\b(meteorological\s+(?:data|products|parameters))\b`,
		`\b(weather\s+(?:data|imagery|products))\b`,
		`\b(ocean\s+(?:color|surface|temperature))\b`,
	)...)
	entities = append(entities, entity(LabelService,
		`\b(API\s+(?:services|endpoints|access))\b`,
		`\b(REST\s+API|web\s+services|data\s+services)\b`,
		`\b(FTP\s+(?:access|download|service))\b`,
		`\b(real-time\s+(?:data|access|streaming))\b`,
	)...)
	entities = append(entities, entity(LabelOrganization,
		`\b(MOSDAC|ISRO|SAC|NRSC|IMD)\b`,
		`\b(Space\s+Applications?\s+Centre)\b`,
		`\b(Indian\s+Space\s+Research\s+Organisation)\b`,
	)...)
	entities = append(entities, entity(LabelMeasurement,
		`\b(temperature|humidity|pressure|wind\s+speed)\b`,
		`\b(precipitation|rainfall|cloud\s+cover)\b`,
		`\b(sea\s+surface\s+temperature|chlorophyll)\b`,
	)...)

	relation := func(predicate, expr string) relationPattern {
		return relationPattern{predicate: predicate, re: compile(expr)}
	}
	relations := []relationPattern{
		relation("provides", `(\w+(?:\s+\w+)*)\s+provides?\s+(\w+(?:\s+\w+)*)`),
		relation("offers", `(\w+(?:\s+\w+)*)\s+offers?\s+(\w+(?:\s+\w+)*)`),
		relation("contains", `(\w+(?:\s+\w+)*)\s+contains?\s+(\w+(?:\s+\w+)*)`),
		relation("used_for", `(\w+(?:\s+\w+)*)\s+(?:is\s+)?used\s+for\s+(\w+(?:\s+\w+)*)`),
		relation("enables_access_to", `(\w+(?:\s+\w+)*)\s+(?:enables?|allows?)\s+(?:access\s+to\s+)?(\w+(?:\s+\w+)*)`),
		relation("part_of", `(\w+(?:\s+\w+)*)\s+(?:is\s+)?part\s+of\s+(\w+(?:\s+\w+)*)`),
		relation("supports", `(\w+(?:\s+\w+)*)\s+supports?\s+(\w+(?:\s+\w+)*)`),
	}

	return &PatternAnnotator{entities: entities, relations: relations}
}

// compile builds a case-insensitive pattern. \w widens to Unicode word
// characters; \b is dropped because RE2 only knows ASCII boundaries, and
// atWordEdges checks the edges instead.
func compile(expr string) *regexp.Regexp {
	expr = strings.ReplaceAll(expr, `\b`, "")
	expr = strings.ReplaceAll(expr, `\w`, `[\p{L}\p{N}_]`)
	return regexp.MustCompile(`(?i)` + expr)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// atWordEdges reports whether text[start:end] has no word character directly
// before or after it.
func atWordEdges(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

// Annotate returns every entity in text, keeping the first occurrence of each
// case-insensitive surface form in pattern order.
func (a *PatternAnnotator) Annotate(text string) []Entity {
	var out []Entity
	seen := make(map[string]bool)
	for _, p := range a.entities {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if !atWordEdges(text, loc[0], loc[1]) {
				continue
			}
			span := strings.TrimSpace(text[loc[0]:loc[1]])
			key := strings.ToLower(span)
			if span == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Entity{
				Text:       span,
				Label:      p.label,
				Start:      loc[0],
				End:        loc[1],
				Confidence: entityConfidence,
			})
		}
	}
	return out
}

// Relationships finds predicate matches whose subject or object is one of the
// given entities.
func (a *PatternAnnotator) Relationships(text string, entities []Entity) []Relationship {
	known := make(map[string]bool, len(entities))
	for _, e := range entities {
		known[strings.ToLower(e.Text)] = true
	}

	var out []Relationship
	for _, p := range a.relations {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			subject := strings.TrimSpace(m[1])
			object := strings.TrimSpace(m[2])
			if !known[strings.ToLower(subject)] && !known[strings.ToLower(object)] {
				continue
			}
			out = append(out, Relationship{
				Subject:    subject,
				Predicate:  p.predicate,
				Object:     object,
				Confidence: relationConfidence,
				SourceText: m[0],
			})
		}
	}
	return out
}

// Triplets converts relationships into knowledge triplets
func Triplets(relationships []Relationship) []Triplet {
	out := make([]Triplet, 0, len(relationships))
	for _, r := range relationships {
		out = append(out, Triplet{
			Subject:    r.Subject,
			Predicate:  r.Predicate,
			Object:     r.Object,
			Confidence: r.Confidence,
			Format:     fmt.Sprintf("(%s) -[%s]-> (%s)", r.Subject, r.Predicate, r.Object),
		})
	}
	return out
}

// Process runs the full annotation pipeline over text
func (a *PatternAnnotator) Process(text string) Document {
	entities := a.Annotate(text)
	relationships := a.Relationships(text, entities)
	triplets := Triplets(relationships)

	if entities == nil {
		entities = []Entity{}
	}
	if relationships == nil {
		relationships = []Relationship{}
	}
	return Document{
		Entities:          entities,
		Relationships:     relationships,
		Triplets:          triplets,
		EntityCount:       len(entities),
		RelationshipCount: len(relationships),
		TripletCount:      len(triplets),
	}
}

// EntityTexts returns the surface forms of entities, deduplicated
// case-insensitively in their original order.
func EntityTexts(entities []Entity) []string {
	out := make([]string, 0, len(entities))
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		key := strings.ToLower(e.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e.Text)
	}
	return out
}

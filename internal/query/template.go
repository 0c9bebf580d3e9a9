package query

import (
	"fmt"
	"strconv"
	"strings"
)

// A statement template is SQL text with two kinds of slots:
//
//	{name}  text slot, filled by an Identifier, a keyword, a projection list or a
//	        nested fragment template
//	@name   bound parameter, rendered as $N; repeated names share one position
//
// Nothing else can be spliced into the text.

type segmentKind int

const (
	segText segmentKind = iota
	segSlot
	segParam
)

type segment struct {
	kind segmentKind
	text string
}

type template struct {
	name     string
	segments []segment
}

// keyword is SQL text drawn from a closed set of constants in this package.
type keyword string

const (
	sortDesc keyword = "DESC"
	sortAsc  keyword = "ASC"
)

var sentinelKeyword = keyword(strconv.Itoa(SentinelValue))

var truncUnits = map[Grouping]keyword{
	GroupYear:  "year",
	GroupMonth: "month",
	GroupDay:   "day",
}

var bucketFormats = map[Grouping]keyword{
	GroupYear:  "YYYY",
	GroupMonth: "YYYY-MM",
	GroupDay:   "YYYY-MM-DD",
}

func isSlotChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z')
}

func parseTemplate(name, text string) (*template, error) {
	t := &template{name: name}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{kind: segText, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '{':
			end := strings.IndexByte(text[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("template %s: unterminated slot at offset %d", name, i)
			}
			slot := text[i+1 : i+end]
			if slot == "" {
				return nil, fmt.Errorf("template %s: empty slot at offset %d", name, i)
			}
			for j := 0; j < len(slot); j++ {
				if !isSlotChar(slot[j]) {
					return nil, fmt.Errorf("template %s: bad slot name %q", name, slot)
				}
			}
			flush()
			t.segments = append(t.segments, segment{kind: segSlot, text: slot})
			i += end
		case '@':
			j := i + 1
			for j < len(text) && isSlotChar(text[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("template %s: empty parameter at offset %d", name, i)
			}
			flush()
			t.segments = append(t.segments, segment{kind: segParam, text: text[i+1 : j]})
			i = j - 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

func mustTemplate(name, text string) *template {
	t, err := parseTemplate(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

// emptyFragment renders nothing; it fills optional slots.
var emptyFragment = &template{name: "empty"}

// bindings supplies values for a template's slots.
type bindings struct {
	idents      map[string]Identifier
	keywords    map[string]keyword
	projections map[string][]Identifier
	fragments   map[string]*template
	params      map[string]any
}

func newBindings() *bindings {
	return &bindings{
		idents:      map[string]Identifier{},
		keywords:    map[string]keyword{},
		projections: map[string][]Identifier{},
		fragments:   map[string]*template{},
		params:      map[string]any{},
	}
}

// maxFragmentDepth bounds fragment nesting so a template that names itself
// fails instead of recursing forever.
const maxFragmentDepth = 4

type renderer struct {
	sb        strings.Builder
	args      []any
	positions map[string]int
}

func render(t *template, b *bindings) (CompiledQuery, error) {
	r := &renderer{positions: map[string]int{}}
	if err := r.render(t, b, 0); err != nil {
		return CompiledQuery{}, err
	}
	return CompiledQuery{SQL: r.sb.String(), Args: r.args}, nil
}

func (r *renderer) render(t *template, b *bindings, depth int) error {
	if depth > maxFragmentDepth {
		return fmt.Errorf("template %s: fragments nested too deeply", t.name)
	}
	for _, seg := range t.segments {
		switch seg.kind {
		case segText:
			r.sb.WriteString(seg.text)
		case segParam:
			if err := r.param(t, seg.text, b); err != nil {
				return err
			}
		case segSlot:
			if err := r.slot(t, seg.text, b, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *renderer) param(t *template, name string, b *bindings) error {
	if pos, ok := r.positions[name]; ok {
		r.sb.WriteString("$" + strconv.Itoa(pos))
		return nil
	}
	v, ok := b.params[name]
	if !ok {
		return fmt.Errorf("template %s: parameter @%s is not bound", t.name, name)
	}
	r.args = append(r.args, v)
	pos := len(r.args)
	r.positions[name] = pos
	r.sb.WriteString("$" + strconv.Itoa(pos))
	return nil
}

func (r *renderer) slot(t *template, name string, b *bindings, depth int) error {
	if id, ok := b.idents[name]; ok {
		if id.IsZero() {
			return fmt.Errorf("template %s: identifier {%s} was never validated", t.name, name)
		}
		r.sb.WriteString(id.Quoted())
		return nil
	}
	if kw, ok := b.keywords[name]; ok {
		r.sb.WriteString(string(kw))
		return nil
	}
	if cols, ok := b.projections[name]; ok {
		if len(cols) == 0 {
			return fmt.Errorf("template %s: projection {%s} is empty", t.name, name)
		}
		for i, c := range cols {
			if c.IsZero() {
				return fmt.Errorf("template %s: projection {%s} holds an unvalidated identifier", t.name, name)
			}
			if i > 0 {
				r.sb.WriteString(",\n    ")
			}
			q := c.Quoted()
			r.sb.WriteString("CAST(r." + q + " AS TEXT) AS " + q)
		}
		return nil
	}
	if frag, ok := b.fragments[name]; ok {
		return r.render(frag, b, depth+1)
	}
	return fmt.Errorf("template %s: slot {%s} is not bound", t.name, name)
}

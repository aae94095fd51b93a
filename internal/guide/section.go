package guide

// Section is one guideline topic. Sections are built once by a loader and
// treated as immutable afterwards.
type Section struct {
	Heading string
	// Body is the rationale prose; paragraphs are separated by a blank line.
	Body      string
	Rationale []string
	Exemplars []CodeExemplar
	// Notes holds blockquote callouts.
	Notes     []string
	BackToTop bool
	// Avoid lists patterns declared discouraged for this section by an
	// inline directive.
	Avoid []string
	// Line is the 1-based source line of the heading, 0 when unknown.
	Line int
}

// AnchorSlug returns the slug derived from the heading.
func (s *Section) AnchorSlug() string {
	return AnchorSlug(s.Heading)
}

// ExemplarsByPolarity returns the exemplars with polarity p in authoring order.
func (s *Section) ExemplarsByPolarity(p Polarity) []CodeExemplar {
	var out []CodeExemplar
	for _, e := range s.Exemplars {
		if e.Polarity == p {
			out = append(out, e)
		}
	}
	return out
}

// BlockKind identifies an element of a rendered section.
type BlockKind int

const (
	BlockHeading BlockKind = iota
	BlockProse
	BlockBullets
	BlockNote
	BlockExemplar
	BlockBackToTop
)

// String returns the string representation of the block kind
func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockProse:
		return "prose"
	case BlockBullets:
		return "bullets"
	case BlockNote:
		return "note"
	case BlockExemplar:
		return "exemplar"
	case BlockBackToTop:
		return "back-to-top"
	default:
		return "unknown"
	}
}

// Block is one element of a section's rendered output. Which fields are set
// depends on Kind: Text for heading, prose and note; Items for bullets;
// Exemplar for exemplars; Anchor for the heading.
type Block struct {
	Kind     BlockKind
	Text     string
	Anchor   string
	Items    []string
	Exemplar *CodeExemplar
}

// Render produces the section as an ordered block sequence: heading, prose,
// bullets, notes, exemplars, then the back-to-top marker. Empty parts are
// omitted. The output is a pure function of the section.
func (s *Section) Render() []Block {
	blocks := make([]Block, 0, 4+len(s.Notes)+len(s.Exemplars))
	blocks = append(blocks, Block{Kind: BlockHeading, Text: s.Heading, Anchor: s.AnchorSlug()})

	if s.Body != "" {
		blocks = append(blocks, Block{Kind: BlockProse, Text: s.Body})
	}
	if len(s.Rationale) > 0 {
		items := make([]string, len(s.Rationale))
		copy(items, s.Rationale)
		blocks = append(blocks, Block{Kind: BlockBullets, Items: items})
	}
	for _, note := range s.Notes {
		blocks = append(blocks, Block{Kind: BlockNote, Text: note})
	}
	for i := range s.Exemplars {
		e := s.Exemplars[i]
		blocks = append(blocks, Block{Kind: BlockExemplar, Exemplar: &e})
	}
	if s.BackToTop {
		blocks = append(blocks, Block{Kind: BlockBackToTop})
	}
	return blocks
}

package models

// CellType classifies a notebook cell. Anything that is not exactly "code"
// in the source document is treated as markdown.
type CellType string

const (
	CellTypeCode     CellType = "code"
	CellTypeMarkdown CellType = "markdown"
)

// Signal is the coarse quality classification the LLM assigns to a cell.
type Signal string

const (
	SignalHigh        Signal = "high"
	SignalMedium      Signal = "medium"
	SignalLow         Signal = "low"
	SignalBoilerplate Signal = "boilerplate"
)

// ValidSignal reports whether s is one of the four known signal values.
func ValidSignal(s Signal) bool {
	switch s {
	case SignalHigh, SignalMedium, SignalLow, SignalBoilerplate:
		return true
	}
	return false
}

// RawCell is one unit of notebook content, order-significant.
type RawCell struct {
	Type    CellType `json:"type"`
	Content string   `json:"content"`
}

// TaggedCell is a RawCell annotated with ML-concept tags and a quality signal.
type TaggedCell struct {
	Type    CellType `json:"type"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Signal  Signal   `json:"signal"`
}

// DeconstructedNotebook is one analyzed notebook: metadata plus the ordered
// tagged cells. Created atomically as a pipeline output and immutable once
// stored.
type DeconstructedNotebook struct {
	Title  string       `json:"title"`
	Author string       `json:"author"`
	URL    string       `json:"url"`
	Cells  []TaggedCell `json:"cells"`
}

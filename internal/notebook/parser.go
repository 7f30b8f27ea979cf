// Package notebook parses Jupyter notebook documents and Kaggle reference
// strings.
package notebook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raphaelgruber/kagglementor/internal/models"
)

// rawDocument mirrors the subset of the .ipynb format we consume: an ordered
// cells array where each source is either a single string or a list of
// string fragments.
type rawDocument struct {
	Cells []rawCell `json:"cells"`
}

type rawCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

// Parse extracts the ordered cell sequence from a raw notebook document.
// A cell is code only when cell_type is exactly "code"; every other value,
// including a missing one, becomes markdown. A malformed document is an
// error; the caller isolates the failure to that one notebook.
func Parse(raw string) ([]models.RawCell, error) {
	var doc rawDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse notebook: %w", err)
	}

	cells := make([]models.RawCell, 0, len(doc.Cells))
	for i, c := range doc.Cells {
		content, err := joinSource(c.Source)
		if err != nil {
			return nil, fmt.Errorf("parse notebook: cell %d: %w", i, err)
		}

		cellType := models.CellTypeMarkdown
		if c.CellType == "code" {
			cellType = models.CellTypeCode
		}

		cells = append(cells, models.RawCell{Type: cellType, Content: content})
	}
	return cells, nil
}

// joinSource concatenates a notebook cell source, which is either a plain
// string or an ordered array of string fragments.
func joinSource(source json.RawMessage) (string, error) {
	if len(source) == 0 {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(source, &s); err == nil {
		return s, nil
	}

	var fragments []string
	if err := json.Unmarshal(source, &fragments); err != nil {
		return "", fmt.Errorf("source is neither string nor string array")
	}
	return strings.Join(fragments, ""), nil
}

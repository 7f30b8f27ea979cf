// Package tagger annotates notebook cells with ML-concept tags and a
// quality signal using an LLM.
package tagger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/kagglementor/internal/llm"
	"github.com/raphaelgruber/kagglementor/internal/models"
)

// Fallback annotation applied when the model returns the wrong number of
// cells. Alignment correctness wins over partial LLM insight.
var fallbackTags = []string{"untagged", "tagging-mismatch"}

// Generator is the text-generation capability the tagger needs.
type Generator interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Meta carries notebook metadata used only to build the prompt context.
type Meta struct {
	Title  string
	Author string
	URL    string
}

// Tagger tags cell sequences via a single structured LLM call per notebook.
type Tagger struct {
	model Generator
}

// New creates a Tagger backed by the given generator.
func New(model Generator) *Tagger {
	return &Tagger{model: model}
}

const systemPrompt = `You are an expert Data Science Analyst responsible for deconstructing Kaggle notebooks. You will be given the full content of a notebook, cell by cell.

Analyze EACH cell individually and assign it metadata:

1. "tags": a list of granular, specific machine learning concepts present in the cell.
   Good tags: "EDA", "XGBoost", "feature-engineering", "data-cleaning", "visualization", "model-training", "submission".
   Bad tags: "code", "important", "cell-5".

2. "signal": a quality score assessing the cell's importance and uniqueness. One of:
   "high": a critical, unique insight, a core modeling step, or a clever technique.
   "medium": a standard but important step, like loading data or a common visualization.
   "low": minor utility, setup, or a very simple, common operation.
   "boilerplate": standard library imports, environment setup, or generic helpers.

Respond with ONLY a JSON array, one object per cell in input order:
[{"tags": ["..."], "signal": "high|medium|low|boilerplate"}, ...]
The array must contain exactly one entry for every cell.`

// cellAnnotation is the per-cell structure the model is asked to return.
type cellAnnotation struct {
	Tags   []string      `json:"tags"`
	Signal models.Signal `json:"signal"`
}

// TagCells produces one TaggedCell per input cell, in input order. The
// output length always equals the input length: a length mismatch from the
// model discards its output entirely and degrades every cell to the default
// annotation. A failed or empty LLM call, by contrast, is propagated.
func (t *Tagger) TagCells(ctx context.Context, meta Meta, cells []models.RawCell) ([]models.TaggedCell, error) {
	if len(cells) == 0 {
		return []models.TaggedCell{}, nil
	}

	response, err := t.model.GenerateWithSystem(ctx, systemPrompt, buildContext(meta, cells))
	if err != nil {
		return nil, fmt.Errorf("tag notebook cells: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("tag notebook cells: model returned no output")
	}

	annotations, err := parseAnnotations(response)
	if err != nil {
		return nil, fmt.Errorf("tag notebook cells: %w", err)
	}

	if len(annotations) != len(cells) {
		slog.Warn("cell count mismatch, degrading to default tags",
			"notebook", meta.URL, "input", len(cells), "output", len(annotations))
		return defaultTagged(cells), nil
	}

	tagged := make([]models.TaggedCell, len(cells))
	for i, cell := range cells {
		ann := annotations[i]
		if len(ann.Tags) == 0 {
			ann.Tags = []string{"untagged"}
		}
		if !models.ValidSignal(ann.Signal) {
			ann.Signal = models.SignalLow
		}
		tagged[i] = models.TaggedCell{
			Type:    cell.Type,
			Content: cell.Content,
			Tags:    ann.Tags,
			Signal:  ann.Signal,
		}
	}
	return tagged, nil
}

// buildContext labels every cell with its index and type so the model can
// align its output.
func buildContext(meta Meta, cells []models.RawCell) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Notebook: %s by %s (%s)\n\n", meta.Title, meta.Author, meta.URL)
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "## CELL %d (TYPE: %s)\n%s\n", i, strings.ToUpper(string(cell.Type)), cell.Content)
	}
	return b.String()
}

// parseAnnotations extracts the structured annotation array from the model
// response.
func parseAnnotations(response string) ([]cellAnnotation, error) {
	raw, err := llm.ExtractJSONArray(response)
	if err != nil {
		return nil, err
	}

	var annotations []cellAnnotation
	if err := json.Unmarshal([]byte(raw), &annotations); err != nil {
		return nil, fmt.Errorf("parse annotations: %w", err)
	}
	return annotations, nil
}

// defaultTagged copies the raw cells with the mismatch fallback annotation.
func defaultTagged(cells []models.RawCell) []models.TaggedCell {
	tagged := make([]models.TaggedCell, len(cells))
	for i, cell := range cells {
		tagged[i] = models.TaggedCell{
			Type:    cell.Type,
			Content: cell.Content,
			Tags:    append([]string(nil), fallbackTags...),
			Signal:  models.SignalLow,
		}
	}
	return tagged
}

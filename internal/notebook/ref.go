package notebook

import (
	"fmt"
	"net/url"
	"strings"
)

// Fallbacks used when a notebook reference is missing one of its halves.
const (
	UntitledNotebook = "Untitled Notebook"
	UnknownAuthor    = "Unknown Author"
)

// CompetitionSlug extracts the competition slug from a competition page URL:
// the last non-empty path segment. Handles both the /c/{slug} and
// /competitions/{slug} forms. A URL without a usable segment is an error and
// fatal for the analysis that supplied it.
func CompetitionSlug(competitionURL string) (string, error) {
	u, err := url.Parse(competitionURL)
	if err != nil {
		return "", fmt.Errorf("parse competition url: %w", err)
	}

	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i], nil
		}
	}
	return "", fmt.Errorf("could not extract competition slug from %q", competitionURL)
}

// TitleAuthor derives display metadata from an "author/slug" notebook
// reference: the slug with dashes replaced by spaces becomes the title.
func TitleAuthor(ref string) (title, author string) {
	author, slug, _ := strings.Cut(ref, "/")

	title = strings.ReplaceAll(slug, "-", " ")
	if title == "" {
		title = UntitledNotebook
	}
	if author == "" {
		author = UnknownAuthor
	}
	return title, author
}

// URL returns the public page URL for an "author/slug" notebook reference.
func URL(ref string) string {
	return "https://www.kaggle.com/code/" + ref
}

// FileName derives a download file name from an "author/slug" reference.
func FileName(ref string) string {
	_, slug, found := strings.Cut(ref, "/")
	if !found || slug == "" {
		slug = strings.ReplaceAll(ref, "/", "-")
	}
	return slug + ".ipynb"
}

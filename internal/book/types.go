// Package book implements the mdBook preprocessor protocol: it reads the
// [context, book] pair from mdBook, renders every literate chapter and writes
// the book back.
package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Context is the first element of the preprocessor input.
type Context struct {
	Root          string          `json:"root"`
	Config        json.RawMessage `json:"config"`
	Renderer      string          `json:"renderer"`
	MdbookVersion string          `json:"mdbook_version"`
}

// Book is the second element of the preprocessor input and the only output.
type Book struct {
	Sections      []Item          `json:"sections"`
	NonExhaustive json.RawMessage `json:"__non_exhaustive"`
}

// Chapter is one page of the book.
type Chapter struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	// Number is kept verbatim; mdBook writes it as an array or null.
	Number      json.RawMessage `json:"number"`
	SubItems    []Item          `json:"sub_items"`
	Path        *string         `json:"path"`
	SourcePath  *string         `json:"source_path"`
	ParentNames []string        `json:"parent_names"`
}

// Item is a book entry: exactly one of a chapter, a separator or a part title.
type Item struct {
	Chapter   *Chapter
	Separator bool
	PartTitle *string
}

const separator = "Separator"

// MarshalJSON writes the externally tagged form mdBook expects.
func (it Item) MarshalJSON() ([]byte, error) {
	switch {
	case it.Chapter != nil:
		return json.Marshal(map[string]*Chapter{"Chapter": it.Chapter})
	case it.PartTitle != nil:
		return json.Marshal(map[string]string{"PartTitle": *it.PartTitle})
	case it.Separator:
		return json.Marshal(separator)
	}
	return nil, errors.New("empty book item")
}

// UnmarshalJSON reads `{"Chapter": ...}`, `"Separator"` or `{"PartTitle": ...}`.
func (it *Item) UnmarshalJSON(data []byte) error {
	*it = Item{}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != separator {
			return fmt.Errorf("unknown book item %q", s)
		}
		it.Separator = true
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid book item: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("book item must have exactly one variant, got %d", len(obj))
	}
	for key, raw := range obj {
		switch key {
		case "Chapter":
			var ch Chapter
			if err := json.Unmarshal(raw, &ch); err != nil {
				return fmt.Errorf("invalid chapter: %w", err)
			}
			it.Chapter = &ch
		case "PartTitle":
			var title string
			if err := json.Unmarshal(raw, &title); err != nil {
				return fmt.Errorf("invalid part title: %w", err)
			}
			it.PartTitle = &title
		default:
			return fmt.Errorf("unknown book item %q", key)
		}
	}
	return nil
}

// Chapters returns every chapter of items, depth first.
func Chapters(items []Item) []*Chapter {
	var out []*Chapter
	var walk func([]Item)
	walk = func(items []Item) {
		for _, it := range items {
			if it.Chapter == nil {
				continue
			}
			out = append(out, it.Chapter)
			walk(it.Chapter.SubItems)
		}
	}
	walk(items)
	return out
}

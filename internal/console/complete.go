package console

import (
	"sort"
	"strings"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/invoke"
)

// CompletionItem is a single autocomplete suggestion.
type CompletionItem struct {
	Label  string `json:"label"`
	Kind   string `json:"kind"` // "operation" or "field"
	Detail string `json:"detail,omitempty"`
}

// complete suggests operations and control ids of the loaded interface for
// the text typed so far. Text up to the first "-" completes operation
// names; after it, the controls of that operation.
func complete(s *abi.Schema, text string) []CompletionItem {
	items := []CompletionItem{}
	op, _, typingField := strings.Cut(text, "-")

	seen := make(map[string]bool)
	for _, b := range invoke.Bindings(s) {
		if !typingField {
			if strings.HasPrefix(b.Operation, text) && !seen[b.Operation] {
				seen[b.Operation] = true
				items = append(items, CompletionItem{
					Label:  b.Operation,
					Kind:   "operation",
					Detail: string(b.Mutability),
				})
			}
			continue
		}
		if b.Operation != op {
			continue
		}
		for _, f := range b.Fields {
			if strings.HasPrefix(f.ID, text) && !seen[f.ID] {
				seen[f.ID] = true
				items = append(items, CompletionItem{Label: f.ID, Kind: "field", Detail: f.Type})
			}
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

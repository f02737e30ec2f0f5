// Package inspect evaluates JMESPath queries over stored bundles.
package inspect

import (
	"encoding/json"
	"fmt"

	"github.com/jmespath/go-jmespath"

	"github.com/coffersTech/benchlog/internal/model"
	"github.com/coffersTech/benchlog/internal/storage"
)

// DefaultQuery lists every record with its entry count.
const DefaultQuery = "bundles[].records[].{kind: kind, id: id, scenario: scenario, client_count: client_count, entries: entry_count}"

type recordDoc struct {
	*model.Record
	EntryCount int `json:"entry_count"`
}

type bundleDoc struct {
	Path    string       `json:"path"`
	Meta    storage.Meta `json:"meta"`
	Records []recordDoc  `json:"records"`
}

// Document converts bundles into the generic JSON value queries run on:
// {"bundles": [{"path", "meta", "records": [{..., "entry_count"}]}]}.
func Document(paths []string, bundles []storage.Bundle) (any, error) {
	docs := make([]bundleDoc, len(bundles))
	for i, b := range bundles {
		docs[i] = bundleDoc{Path: paths[i], Meta: b.Meta, Records: make([]recordDoc, len(b.Records))}
		for j, r := range b.Records {
			docs[i].Records[j] = recordDoc{Record: r, EntryCount: len(r.Entries)}
		}
	}
	raw, err := json.Marshal(map[string]any{"bundles": docs})
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Load reads every bundle and builds the query document.
func Load(paths []string) (any, error) {
	bundles := make([]storage.Bundle, 0, len(paths))
	for _, p := range paths {
		b, err := storage.ReadBundle(p)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return Document(paths, bundles)
}

// Query evaluates expr against doc.
func Query(expr string, doc any) (any, error) {
	jp, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	res, err := jp.Search(doc)
	if err != nil {
		return nil, fmt.Errorf("jmespath search failed: %w", err)
	}
	return res, nil
}

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

// WriteExtracted writes all extracted statements as one JSON object keyed by
// statement ID.
func WriteExtracted(w io.Writer, statements []model.RawStatement) error {
	byID := make(map[string]model.RawStatement, len(statements))
	for _, s := range statements {
		byID[s.ID] = s
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(byID); err != nil {
		return fmt.Errorf("encoding extracted statements: %w", err)
	}
	return nil
}

// ReadExtracted reads either a WriteExtracted document or a single statement
// object. Statements are returned sorted by ID; a statement without an ID
// takes its key.
func ReadExtracted(r io.Reader) ([]model.RawStatement, error) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding statements: %w", err)
	}

	if isStatement(fields) {
		var s model.RawStatement
		if err := decodeFields(fields, &s); err != nil {
			return nil, err
		}
		return []model.RawStatement{s}, nil
	}

	out := make([]model.RawStatement, 0, len(fields))
	for key, msg := range fields {
		var s model.RawStatement
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, fmt.Errorf("decoding statement %s: %w", key, err)
		}
		if s.ID == "" {
			s.ID = key
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// isStatement reports whether a decoded object is a single statement rather
// than a map of statements keyed by ID.
func isStatement(fields map[string]json.RawMessage) bool {
	for _, key := range []string{"transactions", "starting_balance", "ending_balance"} {
		if _, ok := fields[key]; ok {
			return true
		}
	}
	return false
}

func decodeFields(fields map[string]json.RawMessage, v any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decoding statement: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding statement: %w", err)
	}
	return nil
}

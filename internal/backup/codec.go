package backup

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jonathan/career-atoms/internal/types"
)

// Decode reads a strict backup document.
func Decode(r io.Reader) (*types.BackupDocument, error) {
	var doc types.BackupDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode backup document: %w", err)
	}
	return &doc, nil
}

// Encode writes doc as indented JSON followed by a newline.
func Encode(w io.Writer, doc *types.BackupDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode backup document: %w", err)
	}
	return nil
}

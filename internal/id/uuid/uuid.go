// Package uuid generates run identifiers.
package uuid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator creates time-ordered run IDs.
type Generator struct {
	prefix string
}

// New returns a Generator producing bare UUIDv7 strings.
func New() *Generator {
	return &Generator{}
}

// NewWithPrefix returns a Generator whose IDs read "<prefix>-<uuid7>".
func NewWithPrefix(prefix string) *Generator {
	return &Generator{prefix: prefix}
}

// NewID returns a new run ID.
func (g *Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	if g.prefix == "" {
		return id.String(), nil
	}
	return g.prefix + "-" + id.String(), nil
}

// Valid reports whether s is an ID this package could have produced.
func (g *Generator) Valid(s string) bool {
	if g.prefix != "" {
		rest, ok := strings.CutPrefix(s, g.prefix+"-")
		if !ok {
			return false
		}
		s = rest
	}
	_, err := uuid.Parse(s)
	return err == nil
}

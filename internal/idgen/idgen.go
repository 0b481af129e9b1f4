// Package idgen produces request identifiers.
package idgen

import (
	"github.com/google/uuid"
)

// Source hands out unique identifier strings.
// Implementations must be safe for concurrent use.
type Source interface {
	NewID() string
}

type randomSource struct{}

// newRandom returns a Source of UUID v4 strings.
func newRandom() Source { return randomSource{} }

func (randomSource) NewID() string { return uuid.New().String() }

type timeOrderedSource struct {
	next     func() (uuid.UUID, error)
	fallback Source
}

// NewTimeOrdered returns a Source of UUID v7 strings.
// When v7 generation fails the Source falls back to a v4 id.
func NewTimeOrdered() Source {
	return &timeOrderedSource{next: uuid.NewV7, fallback: newRandom()}
}

func (s *timeOrderedSource) NewID() string {
	id, err := s.next()
	if err != nil {
		return s.fallback.NewID()
	}
	return id.String()
}

package domain

import "sync"

// Participant is a conversation participant profile as supplied by storage.
type Participant struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Annotation is the tagging engine's answer for a full conversation.
type Annotation struct {
	Success bool
	Tags    TagSet
	Vectors Vectors
}

// ReferenceMetadata is the ground truth computed once per conversation.
// It is read-only after construction and safe to share across windows.
type ReferenceMetadata struct {
	tags         TagSet
	vectors      Vectors
	participants []Participant

	once         sync.Once
	neighborhood []float32
}

// NewReferenceMetadata builds reference metadata from an annotation.
func NewReferenceMetadata(tags TagSet, vectors Vectors, participants []Participant) *ReferenceMetadata {
	return &ReferenceMetadata{tags: tags, vectors: vectors, participants: participants}
}

// Tags returns the reference tag set.
func (m *ReferenceMetadata) Tags() TagSet { return m.tags }

// Vectors returns the reference tag embeddings.
func (m *ReferenceMetadata) Vectors() Vectors { return m.vectors }

// Participants returns the participant profiles.
func (m *ReferenceMetadata) Participants() []Participant { return m.participants }

// Neighborhood returns the mean of all reference vectors, computed once.
// Nil when the reference has no vectors.
func (m *ReferenceMetadata) Neighborhood() []float32 {
	m.once.Do(func() {
		m.neighborhood = m.vectors.Mean()
	})
	return m.neighborhood
}

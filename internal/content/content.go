// Package content defines the retrievable unit of the engine, its
// per-type metadata, the enrichment framing applied before embedding,
// and the pgvector-backed store the retrieval engine searches.
package content

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type discriminates retrievable content categories.
type Type string

const (
	// TypeDomainRecord is a scholarship or program record.
	TypeDomainRecord Type = "domain_record"
	// TypePlan is a learning plan.
	TypePlan Type = "plan"
	// TypeChatHistory is an indexed conversation turn.
	TypeChatHistory Type = "chat_history"
	// TypeKnowledgeEntity is a named entity from the knowledge base.
	TypeKnowledgeEntity Type = "knowledge_entity"
)

// AllTypes returns every content type in a stable order.
func AllTypes() []Type {
	return []Type{TypeDomainRecord, TypePlan, TypeChatHistory, TypeKnowledgeEntity}
}

// Valid reports whether t is a known content type.
func (t Type) Valid() bool {
	switch t {
	case TypeDomainRecord, TypePlan, TypeChatHistory, TypeKnowledgeEntity:
		return true
	default:
		return false
	}
}

// ErrMetadataMismatch indicates metadata whose kind does not match the
// item's content type.
var ErrMetadataMismatch = errors.New("metadata kind does not match content type")

// Metadata is the per-type payload behind the Type discriminant.
// Tags feeds the profile-overlap score in retrieval; types without
// overlap-relevant terms return nil.
type Metadata interface {
	ContentType() Type
	Tags() []string
}

// RecordMetadata describes a domain_record item.
type RecordMetadata struct {
	Title    string   `json:"title"`
	Provider string   `json:"provider,omitempty"`
	Category string   `json:"category,omitempty"`
	Labels   []string `json:"labels,omitempty"`
}

func (RecordMetadata) ContentType() Type { return TypeDomainRecord }

func (m RecordMetadata) Tags() []string {
	tags := make([]string, 0, len(m.Labels)+1)
	tags = append(tags, m.Labels...)
	if m.Category != "" {
		tags = append(tags, m.Category)
	}
	return tags
}

// PlanMetadata describes a plan item.
type PlanMetadata struct {
	Title      string   `json:"title"`
	Skills     []string `json:"skills,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

func (PlanMetadata) ContentType() Type { return TypePlan }

func (m PlanMetadata) Tags() []string { return m.Skills }

// HistoryMetadata describes a chat_history item.
type HistoryMetadata struct {
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"`
	Intent    string    `json:"intent,omitempty"`
}

func (HistoryMetadata) ContentType() Type { return TypeChatHistory }

func (HistoryMetadata) Tags() []string { return nil }

// EntityMetadata describes a knowledge_entity item.
type EntityMetadata struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

func (EntityMetadata) ContentType() Type { return TypeKnowledgeEntity }

func (m EntityMetadata) Tags() []string {
	tags := make([]string, 0, len(m.Aliases)+1)
	if m.Name != "" {
		tags = append(tags, m.Name)
	}
	return append(tags, m.Aliases...)
}

// Item is one retrievable unit. The engine reads and scores items; it
// never writes them back to their owning store.
type Item struct {
	ID        uuid.UUID
	Type      Type
	Text      string
	Metadata  Metadata

	// UserID scopes user-owned items (chat history); empty for shared
	// catalog content.
	UserID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the discriminant and metadata kind agreement.
func (it Item) Validate() error {
	if !it.Type.Valid() {
		return fmt.Errorf("invalid content type: %q", it.Type)
	}
	if it.Text == "" {
		return fmt.Errorf("content text is required")
	}
	if it.Metadata != nil && it.Metadata.ContentType() != it.Type {
		return fmt.Errorf("%w: item is %s, metadata is %s",
			ErrMetadataMismatch, it.Type, it.Metadata.ContentType())
	}
	return nil
}

// ItemTags returns the overlap-relevant terms of an item.
func ItemTags(it Item) []string {
	if it.Metadata == nil {
		return nil
	}
	return it.Metadata.Tags()
}

// Match is an item returned by a similarity search together with its
// cosine similarity to the query vector.
type Match struct {
	Item       Item
	Similarity float64
}

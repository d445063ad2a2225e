package content

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Enrichment is the embedding-ready form of an item. ContentHash is
// the hex SHA-256 of Text and decides whether an update needs a fresh
// vector.
type Enrichment struct {
	Text        string
	ContentHash string
}

// Enrich frames an item for embedding. Raw text alone embeds poorly
// for structured records, so each type leads with its salient fields
// before the narrative. Items without metadata embed as bare text.
func Enrich(it Item) Enrichment {
	text := enrichText(it)
	sum := sha256.Sum256([]byte(text))
	return Enrichment{Text: text, ContentHash: hex.EncodeToString(sum[:])}
}

func enrichText(it Item) string {
	var b strings.Builder
	switch md := it.Metadata.(type) {
	case RecordMetadata:
		writeField(&b, "Program", md.Title)
		writeField(&b, "Provider", md.Provider)
		writeField(&b, "Category", md.Category)
		writeField(&b, "Labels", strings.Join(md.Labels, ", "))
	case PlanMetadata:
		writeField(&b, "Learning plan", md.Title)
		writeField(&b, "Skills", strings.Join(md.Skills, ", "))
		writeField(&b, "Difficulty", md.Difficulty)
	case HistoryMetadata:
		writeField(&b, "Conversation turn", md.Role)
		writeField(&b, "Intent", md.Intent)
	case EntityMetadata:
		writeField(&b, md.Kind, md.Name)
		writeField(&b, "Also known as", strings.Join(md.Aliases, ", "))
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(it.Text)
	return b.String()
}

// writeField appends "Label: value. " and skips empty values so sparse
// metadata never leaves dangling labels.
func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	if label == "" {
		label = "Entity"
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString(". ")
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mentora-ai/mentora/internal/content"
)

var (
	indexType   string
	indexUser   string
	indexID     string
	indexTitle  string
	indexLabels []string
)

var indexCmd = &cobra.Command{
	Use:   "index [text]",
	Short: "Index content for retrieval",
	Long: `Index content for retrieval.

Embeds the given text and stores it as a retrievable item. Pass --id
to update an existing item in place; the embedding is refreshed only
when the text actually changed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexType, "type", string(content.TypeDomainRecord), "content type: domain_record, plan, or knowledge_entity")
	indexCmd.Flags().StringVar(&indexUser, "user", "", "owning user id for user-scoped content")
	indexCmd.Flags().StringVar(&indexID, "id", "", "item id to update (defaults to a new id)")
	indexCmd.Flags().StringVar(&indexTitle, "title", "", "title or name recorded in the item metadata")
	indexCmd.Flags().StringSliceVar(&indexLabels, "labels", nil, "labels, skills, or aliases depending on the content type")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	item := content.Item{
		Type:   content.Type(indexType),
		Text:   strings.Join(args, " "),
		UserID: indexUser,
	}

	// Assigned here rather than left to the store so the printed id
	// matches the stored row.
	item.ID = uuid.New()
	if indexID != "" {
		id, err := uuid.Parse(indexID)
		if err != nil {
			return fmt.Errorf("invalid item id %q", indexID)
		}
		item.ID = id
	}

	meta, err := indexMetadata(content.Type(indexType), indexTitle, indexLabels)
	if err != nil {
		return err
	}
	item.Metadata = meta

	ctx, a, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.Content.Upsert(ctx, item); err != nil {
		return fmt.Errorf("indexing content: %w", err)
	}

	fmt.Printf("Indexed %s %s\n", item.Type, item.ID)
	return nil
}

// indexMetadata builds the per-type metadata from the shared flags.
// Chat history is indexed by the session manager as turns are recorded,
// never through this command.
func indexMetadata(t content.Type, title string, labels []string) (content.Metadata, error) {
	switch t {
	case content.TypeDomainRecord:
		return content.RecordMetadata{Title: title, Labels: labels}, nil
	case content.TypePlan:
		return content.PlanMetadata{Title: title, Skills: labels}, nil
	case content.TypeKnowledgeEntity:
		return content.EntityMetadata{Name: title, Aliases: labels}, nil
	case content.TypeChatHistory:
		return nil, fmt.Errorf("chat_history is indexed automatically as sessions record turns")
	default:
		return nil, fmt.Errorf("unknown content type %q", t)
	}
}

package builtin

import (
	"context"
	"fmt"

	"cora/internal/notes"
	"cora/internal/tool"
)

// RegisterNotes adds the note-taking tools backed by the given store.
func RegisterNotes(reg *tool.Registry, store *notes.Store) {
	reg.Register(&tool.Spec{
		Name:        "add_note",
		Description: "Save a note",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "The note text",
				},
			},
			"required": []string{"text"},
		},
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			text := args.String("text", "")
			if text == "" {
				return nil, fmt.Errorf("text is required")
			}
			note, err := store.Add(text)
			if err != nil {
				return nil, fmt.Errorf("failed to save note: %v", err)
			}
			return map[string]any{"id": note.ID, "saved": true}, nil
		},
	})

	reg.Register(&tool.Spec{
		Name:        "list_notes",
		Description: "List saved notes, newest first",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			all := store.List()
			return map[string]any{"notes": all, "count": len(all)}, nil
		},
	})

	reg.Register(&tool.Spec{
		Name:        "search_notes",
		Description: "Search saved notes by text",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Text to search for",
				},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			query := args.String("query", "")
			if query == "" {
				return nil, fmt.Errorf("query is required")
			}
			hits := store.Search(query)
			return map[string]any{"notes": hits, "count": len(hits)}, nil
		},
	})

	reg.Register(&tool.Spec{
		Name:        "delete_note",
		Description: "Delete a note by ID",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "ID of the note to delete",
				},
			},
			"required": []string{"id"},
		},
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			id := args.String("id", "")
			removed, err := store.Delete(id)
			if err != nil {
				return nil, fmt.Errorf("failed to delete note: %v", err)
			}
			if !removed {
				return nil, fmt.Errorf("note %s not found", id)
			}
			return map[string]any{"deleted": id}, nil
		},
	})
}

package builtin

import (
	"context"
	"fmt"

	"cora/internal/tool"
	"cora/internal/voice"
)

// RegisterVoice adds the speech tools backed by the given speaker.
func RegisterVoice(reg *tool.Registry, speaker *voice.Speaker) {
	reg.Register(&tool.Spec{
		Name:        "speak",
		Description: "Speak text aloud through the configured TTS engine",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Text to speak",
				},
			},
			"required": []string{"text"},
		},
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			text := args.String("text", "")
			if text == "" {
				return nil, fmt.Errorf("text is required")
			}
			if err := speaker.Speak(text); err != nil {
				return nil, err
			}
			return map[string]any{"queued": text}, nil
		},
	})

	reg.Register(&tool.Spec{
		Name:        "tts_info",
		Description: "Report the state of the TTS engine",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			return map[string]any{
				"available":      speaker.Available(),
				"engine":         speaker.Engine(),
				"last_utterance": speaker.Last(),
			}, nil
		},
	})
}

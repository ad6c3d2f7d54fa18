package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cora/internal/tool"
)

const maxFetchBytes = 256 << 10

var webHTTP = &http.Client{Timeout: 15 * time.Second}

// RegisterWeb adds the network tools: fetch_url, weather and web_search.
func RegisterWeb(reg *tool.Registry) {
	reg.Register(&tool.Spec{
		Name:        "fetch_url",
		Description: "Fetch the contents of a URL",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to fetch (http or https)",
				},
			},
			"required": []string{"url"},
		},
		Handler: fetchURL,
	})

	reg.Register(&tool.Spec{
		Name:        "weather",
		Description: "Get the current weather for a location",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{
					"type":        "string",
					"description": "City or place name (default: current location by IP)",
				},
			},
		},
		Handler: weather,
	})

	reg.Register(&tool.Spec{
		Name:        "web_search",
		Description: "Search the web and return a short answer",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query",
				},
			},
			"required": []string{"query"},
		},
		Handler: webSearch,
	})
}

func fetchURL(ctx context.Context, args tool.Args) (any, error) {
	raw := args.String("url", "")
	if raw == "" {
		return nil, fmt.Errorf("url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("invalid URL: %s", raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "cora/1.0")

	resp, err := webHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	return map[string]any{
		"status":       resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
		"body":         string(body),
	}, nil
}

// weather uses the wttr.in one-line format, which needs no API key.
func weather(ctx context.Context, args tool.Args) (any, error) {
	location := strings.TrimSpace(args.String("location", ""))

	endpoint := "https://wttr.in/" + url.PathEscape(location) + "?format=%l:+%C+%t+(feels+like+%f),+wind+%w"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "curl/8.0")

	resp, err := webHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather lookup failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather service returned status %d", resp.StatusCode)
	}

	return map[string]any{"weather": strings.TrimSpace(string(body))}, nil
}

// webSearch uses the DuckDuckGo instant-answer API.
func webSearch(ctx context.Context, args tool.Args) (any, error) {
	query := strings.TrimSpace(args.String("query", ""))
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	endpoint := "https://api.duckduckgo.com/?format=json&no_html=1&q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := webHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %v", err)
	}
	defer resp.Body.Close()

	var answer struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Answer        string `json:"Answer"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %v", err)
	}

	switch {
	case answer.Answer != "":
		return map[string]any{"answer": answer.Answer}, nil
	case answer.AbstractText != "":
		return map[string]any{"answer": answer.AbstractText, "source": answer.AbstractURL}, nil
	case len(answer.RelatedTopics) > 0 && answer.RelatedTopics[0].Text != "":
		return map[string]any{"answer": answer.RelatedTopics[0].Text, "source": answer.RelatedTopics[0].FirstURL}, nil
	}

	return nil, fmt.Errorf("no results for %q", query)
}

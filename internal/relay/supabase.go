package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Command is one remotely queued command row.
type Command struct {
	ID          string         `json:"id"`
	Command     string         `json:"command"`
	Params      map[string]any `json:"params"`
	Status      string         `json:"status"`
	Result      any            `json:"result,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Pairing is one pairing-code row.
type Pairing struct {
	Code       string     `json:"code"`
	AnchorID   string     `json:"anchor_id"`
	AnchorName string     `json:"anchor_name"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
	ClaimedBy  string     `json:"claimed_by,omitempty"`
}

const (
	statusTable   = "cora_status"
	commandsTable = "cora_commands"
	pairingsTable = "cora_pairings"
)

// Store is the REST client for the remote command queue, status table and
// pairing table. Every call is a single blocking request with a timeout;
// failures come back as plain errors for the owning loop to log.
type Store struct {
	baseURL string
	key     string
	http    *http.Client
}

// NewStore creates a store client for a PostgREST-style endpoint.
func NewStore(baseURL, key string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether both endpoint settings are present.
func (s *Store) Configured() bool {
	return s.baseURL != "" && s.key != ""
}

// UpsertStatus publishes the heartbeat row keyed by anchor ID.
func (s *Store) UpsertStatus(ctx context.Context, anchorID string, systemInfo map[string]any) error {
	row := map[string]any{
		"id":          anchorID,
		"online":      true,
		"last_seen":   time.Now().UTC().Format(time.RFC3339),
		"system_info": systemInfo,
	}

	_, err := s.request(ctx, http.MethodPost, statusTable+"?on_conflict=id", row, true)
	return err
}

// PendingCommands fetches up to limit pending commands, oldest first.
func (s *Store) PendingCommands(ctx context.Context, limit int) ([]Command, error) {
	endpoint := fmt.Sprintf("%s?status=eq.pending&order=created_at.asc&limit=%d", commandsTable, limit)
	body, err := s.request(ctx, http.MethodGet, endpoint, nil, false)
	if err != nil {
		return nil, err
	}

	var commands []Command
	if err := json.Unmarshal(body, &commands); err != nil {
		return nil, fmt.Errorf("failed to parse command list: %w", err)
	}
	return commands, nil
}

// MarkRunning transitions a command to running before execution.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	endpoint := commandsTable + "?id=eq." + url.QueryEscape(id)
	_, err := s.request(ctx, http.MethodPatch, endpoint, map[string]any{"status": "running"}, false)
	return err
}

// Complete stamps a command terminal with its result payload. Status is
// "done" or "error".
func (s *Store) Complete(ctx context.Context, id, status string, result any) error {
	endpoint := commandsTable + "?id=eq." + url.QueryEscape(id)
	_, err := s.request(ctx, http.MethodPatch, endpoint, map[string]any{
		"status":       status,
		"result":       result,
		"completed_at": time.Now().UTC().Format(time.RFC3339),
	}, false)
	return err
}

// CreatePairing inserts a new pairing-code row.
func (s *Store) CreatePairing(ctx context.Context, p Pairing) error {
	row := map[string]any{
		"code":        p.Code,
		"anchor_id":   p.AnchorID,
		"anchor_name": p.AnchorName,
		"expires_at":  p.ExpiresAt.UTC().Format(time.RFC3339),
	}
	_, err := s.request(ctx, http.MethodPost, pairingsTable, row, false)
	return err
}

// PairingByCode reads a pairing row. A missing row returns found=false
// with no error.
func (s *Store) PairingByCode(ctx context.Context, code string) (Pairing, bool, error) {
	endpoint := pairingsTable + "?code=eq." + url.QueryEscape(code)
	body, err := s.request(ctx, http.MethodGet, endpoint, nil, false)
	if err != nil {
		return Pairing{}, false, err
	}

	var rows []Pairing
	if err := json.Unmarshal(body, &rows); err != nil {
		return Pairing{}, false, fmt.Errorf("failed to parse pairing row: %w", err)
	}
	if len(rows) == 0 {
		return Pairing{}, false, nil
	}
	return rows[0], true, nil
}

// request issues one authenticated call against the REST endpoint.
func (s *Store) request(ctx context.Context, method, endpoint string, payload any, upsert bool) ([]byte, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("relay not configured")
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+"/rest/v1/"+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Content-Type", "application/json")
	if upsert {
		req.Header.Set("Prefer", "return=representation,resolution=merge-duplicates")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("relay returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

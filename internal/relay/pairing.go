package relay

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"sync"
	"time"

	"cora/internal/logger"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I/L).
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	codeLength   = 4
	codeTTL      = 5 * time.Minute
	pollInterval = 2 * time.Second
)

// PairStatus is the classification of a pairing code.
type PairStatus struct {
	Status     string `json:"status"` // pending, claimed or expired
	Code       string `json:"code"`
	ClaimedBy  string `json:"claimed_by,omitempty"`
	AnchorID   string `json:"anchor_id,omitempty"`
	AnchorName string `json:"anchor_name,omitempty"`
}

// Terminal reports whether polling for this status should stop.
func (s PairStatus) Terminal() bool {
	return s.Status == "claimed" || s.Status == "expired"
}

// PairingManager bridges an unauthenticated mobile client to this
// installation via a short-lived human-enterable code.
type PairingManager struct {
	store      *Store
	log        *logger.Logger
	anchorID   string
	anchorName string
	pairURL    string

	mu         sync.Mutex
	pollCancel context.CancelFunc
}

func NewPairingManager(store *Store, anchorID, anchorName, pairURL string, log *logger.Logger) *PairingManager {
	if log == nil {
		log = logger.Nop()
	}
	return &PairingManager{
		store:      store,
		log:        log,
		anchorID:   anchorID,
		anchorName: anchorName,
		pairURL:    pairURL,
	}
}

// GenerateCode creates and persists a new pairing code, returning the
// code and the deep-link URL to encode in a QR image.
func (m *PairingManager) GenerateCode(ctx context.Context) (Pairing, string, error) {
	code, err := randomCode()
	if err != nil {
		return Pairing{}, "", err
	}

	pairing := Pairing{
		Code:       code,
		AnchorID:   m.anchorID,
		AnchorName: m.anchorName,
		ExpiresAt:  time.Now().Add(codeTTL),
	}

	if err := m.store.CreatePairing(ctx, pairing); err != nil {
		return Pairing{}, "", fmt.Errorf("failed to create pairing code: %w", err)
	}

	m.log.Info("pairing code %s generated for %s", code, m.anchorID)
	return pairing, m.QRURL(code), nil
}

// QRURL returns the mobile deep-link URL embedding the code.
func (m *PairingManager) QRURL(code string) string {
	return m.pairURL + "?code=" + url.QueryEscape(code)
}

// Status checks a code against the store without mutating anything.
// A missing row or a passed expiry both classify as expired.
func (m *PairingManager) Status(ctx context.Context, code string) (PairStatus, error) {
	row, found, err := m.store.PairingByCode(ctx, code)
	if err != nil {
		return PairStatus{}, err
	}

	if !found {
		return PairStatus{Status: "expired", Code: code}, nil
	}

	if row.ClaimedAt != nil {
		return PairStatus{
			Status:     "claimed",
			Code:       code,
			ClaimedBy:  row.ClaimedBy,
			AnchorID:   row.AnchorID,
			AnchorName: row.AnchorName,
		}, nil
	}

	if !row.ExpiresAt.IsZero() && time.Now().After(row.ExpiresAt) {
		return PairStatus{Status: "expired", Code: code}, nil
	}

	return PairStatus{Status: "pending", Code: code}, nil
}

// Poll checks the code at the given interval until a terminal status is
// observed, then calls onResult exactly once. A transient fetch fault
// counts as still pending. The loop exits without calling onResult when
// the context is cancelled.
func (m *PairingManager) Poll(ctx context.Context, code string, interval time.Duration, onResult func(PairStatus)) {
	if interval <= 0 {
		interval = pollInterval
	}

	for {
		status, err := m.Status(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// One failed attempt is not a verdict, keep polling
			m.log.Debug("pairing poll failed: %v", err)
		} else if status.Terminal() {
			onResult(status)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// StartPoll runs Poll in the background. Only one background poll runs
// at a time; starting a new one cancels the previous.
func (m *PairingManager) StartPoll(code string, interval time.Duration, onResult func(PairStatus)) {
	m.mu.Lock()
	if m.pollCancel != nil {
		m.pollCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.pollCancel = cancel
	m.mu.Unlock()

	go m.Poll(ctx, code, interval, onResult)
}

// StopPoll cancels the background poll, if any.
func (m *PairingManager) StopPoll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
}

// randomCode draws codeLength characters from the unambiguous alphabet.
func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate pairing code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return "CORA-" + string(buf), nil
}

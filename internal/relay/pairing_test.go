package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePairings serves the pairing table: insert on POST, lookup by code
// on GET. Rows can be mutated by tests to simulate claims.
type fakePairings struct {
	mu       sync.Mutex
	rows     map[string]Pairing
	failNext int
}

func newFakePairings() *fakePairings {
	return &fakePairings{rows: make(map[string]Pairing)}
}

func (f *fakePairings) claim(code, by string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.rows[code]
	now := time.Now()
	row.ClaimedAt = &now
	row.ClaimedBy = by
	f.rows[code] = row
}

func (f *fakePairings) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if f.failNext > 0 {
			f.failNext--
			http.Error(w, "transient failure", http.StatusServiceUnavailable)
			return
		}

		if !strings.HasPrefix(r.URL.Path, "/rest/v1/cora_pairings") {
			http.NotFound(w, r)
			return
		}

		switch r.Method {
		case http.MethodPost:
			var row Pairing
			json.NewDecoder(r.Body).Decode(&row)
			f.rows[row.Code] = row
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("[]"))

		case http.MethodGet:
			code := strings.TrimPrefix(r.URL.Query().Get("code"), "eq.")
			if row, ok := f.rows[code]; ok {
				json.NewEncoder(w).Encode([]Pairing{row})
			} else {
				w.Write([]byte("[]"))
			}
		}
	})
}

func newTestPairingManager(t *testing.T, fake *fakePairings) *PairingManager {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	store := NewStore(server.URL, "test-key")
	return NewPairingManager(store, "anchor-test", "Test PC", "https://cora.app/pair", nil)
}

func TestRandomCode_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := randomCode()
		require.NoError(t, err)

		require.Len(t, code, len("CORA-")+codeLength)
		require.True(t, strings.HasPrefix(code, "CORA-"))
		for _, ch := range code[len("CORA-"):] {
			assert.Contains(t, codeAlphabet, string(ch))
		}
		seen[code] = true
	}
	// 50 draws from a ~1M code space should essentially never collide
	assert.Greater(t, len(seen), 45)
}

func TestPairingManager_GenerateCode(t *testing.T) {
	fake := newFakePairings()
	manager := newTestPairingManager(t, fake)

	pairing, qrURL, err := manager.GenerateCode(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(pairing.Code, "CORA-"))
	assert.Equal(t, "anchor-test", pairing.AnchorID)
	assert.Contains(t, qrURL, "https://cora.app/pair?code=CORA-")
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), pairing.ExpiresAt, 10*time.Second)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.rows, pairing.Code)
}

func TestPairingManager_StatusClassification(t *testing.T) {
	fake := newFakePairings()
	manager := newTestPairingManager(t, fake)
	ctx := context.Background()

	pairing, _, err := manager.GenerateCode(ctx)
	require.NoError(t, err)

	status, err := manager.Status(ctx, pairing.Code)
	require.NoError(t, err)
	assert.Equal(t, "pending", status.Status)

	// Missing row classifies as expired
	status, err = manager.Status(ctx, "CORA-ZZZZ")
	require.NoError(t, err)
	assert.Equal(t, "expired", status.Status)

	// A claim is terminal and carries the claimer identity
	fake.claim(pairing.Code, "phone-42")
	status, err = manager.Status(ctx, pairing.Code)
	require.NoError(t, err)
	assert.Equal(t, "claimed", status.Status)
	assert.Equal(t, "phone-42", status.ClaimedBy)
	assert.True(t, status.Terminal())
}

func TestPairingManager_StatusExpiredByTime(t *testing.T) {
	fake := newFakePairings()
	manager := newTestPairingManager(t, fake)

	fake.mu.Lock()
	fake.rows["CORA-OLD2"] = Pairing{
		Code:      "CORA-OLD2",
		AnchorID:  "anchor-test",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	fake.mu.Unlock()

	status, err := manager.Status(context.Background(), "CORA-OLD2")
	require.NoError(t, err)
	assert.Equal(t, "expired", status.Status)
}

func TestPairingManager_PollReportsClaimOnce(t *testing.T) {
	fake := newFakePairings()
	manager := newTestPairingManager(t, fake)
	ctx := context.Background()

	pairing, _, err := manager.GenerateCode(ctx)
	require.NoError(t, err)

	// One transient server fault must not abort the poll
	fake.mu.Lock()
	fake.failNext = 1
	fake.mu.Unlock()

	results := make(chan PairStatus, 2)
	go manager.Poll(ctx, pairing.Code, 10*time.Millisecond, func(s PairStatus) {
		results <- s
	})

	time.Sleep(50 * time.Millisecond)
	fake.claim(pairing.Code, "phone-7")

	select {
	case status := <-results:
		assert.Equal(t, "claimed", status.Status)
		assert.Equal(t, "phone-7", status.ClaimedBy)
	case <-time.After(2 * time.Second):
		t.Fatal("poll never reported the claim")
	}

	// Exactly once
	select {
	case <-results:
		t.Fatal("poll reported a second result")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPairingManager_StopPollCancelsWithoutResult(t *testing.T) {
	fake := newFakePairings()
	manager := newTestPairingManager(t, fake)

	pairing, _, err := manager.GenerateCode(context.Background())
	require.NoError(t, err)

	called := make(chan struct{}, 1)
	manager.StartPoll(pairing.Code, 10*time.Millisecond, func(PairStatus) {
		called <- struct{}{}
	})

	time.Sleep(30 * time.Millisecond)
	manager.StopPoll()

	select {
	case <-called:
		t.Fatal("cancelled poll should not deliver a result")
	case <-time.After(100 * time.Millisecond):
	}
}

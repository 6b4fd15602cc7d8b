package reward

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	domreward "github.com/kailas-cloud/convscore/internal/domain/reward"
)

type mockStore struct {
	hashes  map[string]map[string]string
	lists   map[string][]string
	hsetErr error
	pushErr error
}

func newMockStore() *mockStore {
	return &mockStore{hashes: map[string]map[string]string{}, lists: map[string][]string{}}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	if m.hashes[key] == nil {
		m.hashes[key] = map[string]string{}
	}
	for k, v := range fields {
		m.hashes[key][k] = v
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

func (m *mockStore) RPush(_ context.Context, key string, values ...string) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

func newTestStore(ms *mockStore) *Store {
	s := New(ms, "cs:", "validator-1", nil)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestSubmit_WritesHashAndAudit(t *testing.T) {
	ms := newMockStore()
	s := newTestStore(ms)

	err := s.Submit(t.Context(), "g1", domreward.Vector{
		WindowIndex: 1,
		Rewards:     map[string]float64{"w1": 0.75, "w2": 0.25},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stored map[string]float64
	if err := json.Unmarshal([]byte(ms.hashes["cs:rewards:g1"]["1"]), &stored); err != nil {
		t.Fatalf("stored rewards are not JSON: %v", err)
	}
	if stored["w1"] != 0.75 || stored["w2"] != 0.25 {
		t.Errorf("unexpected stored rewards %v", stored)
	}

	log := ms.lists["cs:rewards:log"]
	if len(log) != 1 {
		t.Fatalf("expected 1 audit line, got %d", len(log))
	}
	var line auditLine
	if err := json.Unmarshal([]byte(log[0]), &line); err != nil {
		t.Fatal(err)
	}
	if line.GUID != "g1" || line.Identity != "validator-1" || line.WindowIndex != 1 || line.Total != 1 {
		t.Errorf("unexpected audit line %+v", line)
	}
	if !line.SubmittedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", line.SubmittedAt)
	}
}

func TestSubmit_NilRewardsEncodeAsObject(t *testing.T) {
	ms := newMockStore()
	s := newTestStore(ms)

	if err := s.Submit(t.Context(), "g1", domreward.Vector{WindowIndex: 0}); err != nil {
		t.Fatal(err)
	}
	if got := ms.hashes["cs:rewards:g1"]["0"]; got != "{}" {
		t.Errorf("expected {}, got %q", got)
	}
}

func TestSubmit_StoreErrors(t *testing.T) {
	boom := errors.New("boom")

	ms := newMockStore()
	ms.hsetErr = boom
	if err := newTestStore(ms).Submit(t.Context(), "g", domreward.Vector{}); !errors.Is(err, boom) {
		t.Errorf("expected HSET error, got %v", err)
	}

	ms = newMockStore()
	ms.pushErr = boom
	if err := newTestStore(ms).Submit(t.Context(), "g", domreward.Vector{}); !errors.Is(err, boom) {
		t.Errorf("expected RPUSH error, got %v", err)
	}
}

func TestLoad_OrderedByWindow(t *testing.T) {
	ms := newMockStore()
	s := newTestStore(ms)
	for _, idx := range []int{2, 0, 1} {
		if err := s.Submit(t.Context(), "g1", domreward.Vector{
			WindowIndex: idx,
			Rewards:     map[string]float64{"w1": float64(idx)},
		}); err != nil {
			t.Fatal(err)
		}
	}

	vs, err := s.Load(t.Context(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vs))
	}
	for i, v := range vs {
		if v.WindowIndex != i || v.Rewards["w1"] != float64(i) {
			t.Errorf("vector %d: unexpected %+v", i, v)
		}
	}
}

func TestLoad_BadField(t *testing.T) {
	ms := newMockStore()
	ms.hashes["cs:rewards:g1"] = map[string]string{"x": "{}"}

	if _, err := newTestStore(ms).Load(t.Context(), "g1"); err == nil {
		t.Fatal("expected error for non-numeric field")
	}
}

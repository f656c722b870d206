package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"jira-connector/internal/jira"
	"jira-connector/internal/jira/jiratest"
	"jira-connector/internal/tagapi"
)

type fakeTags struct {
	mu       sync.Mutex
	batches  [][]tagapi.UpsertTagRequest
	deleted  []string
	failFrom int // 1-based upsert call that starts failing, 0 never
	calls    int
}

func (f *fakeTags) UpsertBatch(_ context.Context, requests []tagapi.UpsertTagRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFrom > 0 && f.calls >= f.failFrom {
		return errors.New("tag API unavailable")
	}
	f.batches = append(f.batches, requests)
	return nil
}

func (f *fakeTags) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeTags) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, b := range f.batches {
		for _, r := range b {
			out = append(out, r.Name)
		}
	}
	return out
}

type memStore struct {
	values map[string]int64
}

func (m *memStore) GetInt(_ context.Context, key string) (int64, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) PutInt(_ context.Context, key string, value int64) error {
	m.values[key] = value
	return nil
}

type testEnv struct {
	conn  *JiraConnector
	jira  *jiratest.Fixture
	tags  *fakeTags
	store *memStore
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	f := jiratest.New(t)
	tags := &fakeTags{}
	st := &memStore{values: map[string]int64{}}

	c, err := New(cfg, f.DB, st, tags)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{conn: c, jira: f, tags: tags, store: st}
}

// seedSequentialIssues adds n issues to project WT with IDs 101..100+n.
func (e *testEnv) seedSequentialIssues(t *testing.T, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		e.jira.AddIssue(t, jira.Issue{
			ID:          int64(100 + i),
			ProjectKey:  "WT",
			IssueNumber: fmt.Sprint(i),
			Summary:     fmt.Sprintf("Issue %d", i),
		})
	}
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stevemurr/persiston/adapter"
	"github.com/stevemurr/persiston/handler"
	"github.com/stevemurr/persiston/record"
	"github.com/stevemurr/persiston/store"
)

func setup(t *testing.T, opts ...store.Option) (*httptest.Server, *store.Store) {
	t.Helper()
	s := store.New(opts...)
	h := handler.New(s, handler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, s
}

func seed(t *testing.T, s *store.Store) {
	t.Helper()
	users := s.Collection("users")
	_, err := users.Insert(context.Background(),
		record.MustObject("name", "foo", "age", 18, "address", record.MustObject("city", "Oslo")),
		record.MustObject("name", "bar", "age", 21),
		record.MustObject("name", "baz", "age", 18),
	)
	if err != nil {
		t.Fatal(err)
	}
}

func do(t *testing.T, method, target string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(mustJSON(t, body))
	}
	req, err := http.NewRequest(method, target, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func decodeJSON(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func decodeJSONArray(t *testing.T, r io.Reader) []any {
	t.Helper()
	var v []any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d", want, resp.StatusCode)
	}
}

func TestRootAndHealth(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeJSON(t, resp.Body)
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}
	if resp.Header.Get(handler.RequestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}

	resp = do(t, http.MethodGet, ts.URL+"/health", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, http.MethodGet, ts.URL+"/nope", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestRequestID(t *testing.T) {
	ts, _ := setup(t)

	a := do(t, http.MethodGet, ts.URL+"/health", nil).Header.Get(handler.RequestIDHeader)
	b := do(t, http.MethodGet, ts.URL+"/health", nil).Header.Get(handler.RequestIDHeader)
	if a == "" || a == b {
		t.Fatalf("expected distinct request ids, got %q and %q", a, b)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set(handler.RequestIDHeader, "given")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(handler.RequestIDHeader); got != "given" {
		t.Fatalf("expected the caller's id echoed, got %q", got)
	}
}

func TestFind(t *testing.T) {
	ts, s := setup(t)
	seed(t, s)
	base := ts.URL + "/collections/users/items"

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"number literal", "?age=18", 2},
		{"quoted string does not match number", "?age=%2218%22", 0},
		{"plain string", "?name=bar", 1},
		{"dotted path", "?address.city=Oslo", 1},
		{"two conditions", "?age=18&name=baz", 1},
		{"no match", "?age=99", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, base+tc.query, nil)
			expectStatus(t, resp, http.StatusOK)
			if items := decodeJSONArray(t, resp.Body); len(items) != tc.want {
				t.Fatalf("expected %d items, got %d: %v", tc.want, len(items), items)
			}
		})
	}

	t.Run("fields", func(t *testing.T) {
		resp := do(t, http.MethodGet, base+"?name=foo&_fields=name,age", nil)
		items := decodeJSONArray(t, resp.Body)
		item := items[0].(map[string]any)
		if _, ok := item["address"]; ok || item["name"] != "foo" || item["age"] != 18.0 {
			t.Fatalf("unexpected projection %v", item)
		}

		resp = do(t, http.MethodGet, base+"?name=foo&_fields=-address", nil)
		item = decodeJSONArray(t, resp.Body)[0].(map[string]any)
		if _, ok := item["address"]; ok || item["name"] != "foo" {
			t.Fatalf("unexpected projection %v", item)
		}
	})

	t.Run("unknown collection", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/collections/ghost/items", nil)
		expectStatus(t, resp, http.StatusOK)
		if items := decodeJSONArray(t, resp.Body); len(items) != 0 {
			t.Fatalf("expected empty list, got %v", items)
		}
	})
}

func TestFindOneAndCount(t *testing.T) {
	ts, s := setup(t)
	seed(t, s)
	base := ts.URL + "/collections/users"

	resp := do(t, http.MethodGet, base+"/items/one?age=21", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeJSON(t, resp.Body); body["name"] != "bar" {
		t.Fatalf("expected bar, got %v", body)
	}

	resp = do(t, http.MethodGet, base+"/items/one?age=99", nil)
	expectStatus(t, resp, http.StatusNotFound)
	if body := decodeJSON(t, resp.Body); body["detail"] == nil {
		t.Fatalf("expected detail, got %v", body)
	}

	resp = do(t, http.MethodGet, base+"/count?age=18", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeJSON(t, resp.Body); body["count"] != 2.0 {
		t.Fatalf("expected count 2, got %v", body)
	}
}

func TestInsert(t *testing.T) {
	a := adapter.NewMemoryAdapter()
	ts, s := setup(t, store.WithAdapter(a))
	endpoint := ts.URL + "/collections/notes/items"

	resp := do(t, http.MethodPost, endpoint, map[string]any{"title": "one"})
	expectStatus(t, resp, http.StatusCreated)
	if body := decodeJSON(t, resp.Body); body["inserted"] != 1.0 {
		t.Fatalf("expected 1 inserted, got %v", body)
	}

	resp = do(t, http.MethodPost, endpoint, []any{map[string]any{"title": "two"}, map[string]any{"title": "three"}})
	expectStatus(t, resp, http.StatusCreated)
	if body := decodeJSON(t, resp.Body); body["inserted"] != 2.0 {
		t.Fatalf("expected 2 inserted, got %v", body)
	}

	if n, _ := s.Collection("notes").Count(nil); n != 3 {
		t.Fatalf("expected 3 notes, got %d", n)
	}
	if a.Writes() != 2 {
		t.Fatalf("expected 2 saves, got %d", a.Writes())
	}

	t.Run("bad bodies", func(t *testing.T) {
		for _, body := range []string{`{"title":`, `42`, `[1, 2]`} {
			resp, err := http.Post(endpoint, "application/json", bytes.NewBufferString(body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("%s: expected 400, got %d", body, resp.StatusCode)
			}
		}
	})
}

func TestUpdate(t *testing.T) {
	ts, s := setup(t)
	seed(t, s)
	endpoint := ts.URL + "/collections/users/items"

	resp := do(t, http.MethodPatch, endpoint, map[string]any{
		"query":   map[string]any{"age": 18},
		"changes": map[string]any{"age": 19},
	})
	expectStatus(t, resp, http.StatusOK)
	if body := decodeJSON(t, resp.Body); body["updated"] != 2.0 {
		t.Fatalf("expected 2 updated, got %v", body)
	}

	resp = do(t, http.MethodPatch, endpoint, map[string]any{
		"query":   map[string]any{"age": 19},
		"changes": map[string]any{"vip": true},
		"one":     true,
	})
	if body := decodeJSON(t, resp.Body); body["updated"] != 1.0 {
		t.Fatalf("expected 1 updated, got %v", body)
	}
	if n, _ := s.Collection("users").Count(record.Query{"vip": true}); n != 1 {
		t.Fatalf("expected 1 vip, got %d", n)
	}

	resp = do(t, http.MethodPatch, endpoint, map[string]any{"query": map[string]any{}})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestRemove(t *testing.T) {
	ts, s := setup(t)
	seed(t, s)
	base := ts.URL + "/collections/users/items"
	users := s.Collection("users")

	resp := do(t, http.MethodDelete, base+"?age=18&_one=true", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeJSON(t, resp.Body); body["removed"] != 1.0 {
		t.Fatalf("expected 1 removed, got %v", body)
	}
	if n, _ := users.Count(nil); n != 2 {
		t.Fatalf("expected 2 left, got %d", n)
	}

	resp = do(t, http.MethodDelete, base, nil)
	if body := decodeJSON(t, resp.Body); body["removed"] != 2.0 {
		t.Fatalf("expected 2 removed, got %v", body)
	}
	if n, _ := users.Count(nil); n != 0 {
		t.Fatalf("expected none left, got %d", n)
	}
}

func TestCollectionsAndDataset(t *testing.T) {
	ts, s := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/collections", nil)
	if names := decodeJSONArray(t, resp.Body); len(names) != 0 {
		t.Fatalf("expected no collections, got %v", names)
	}

	seed(t, s)
	s.Collection("alpha").Find(nil)

	resp = do(t, http.MethodGet, ts.URL+"/collections", nil)
	names := decodeJSONArray(t, resp.Body)
	if len(names) != 2 || names[0] != "alpha" || names[1] != "users" {
		t.Fatalf("expected [alpha users], got %v", names)
	}

	resp = do(t, http.MethodGet, ts.URL+"/dataset", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeJSON(t, resp.Body)
	if users, ok := body["users"].([]any); !ok || len(users) != 3 {
		t.Fatalf("expected 3 users in dataset, got %v", body["users"])
	}
}

// brokenAdapter fails every save.
type brokenAdapter struct{}

func (brokenAdapter) Read(context.Context) (record.Dataset, error) { return nil, nil }

func (brokenAdapter) Write(context.Context, record.Dataset) error {
	return &adapter.WriteError{Source: "broken", Err: errors.New("disk full")}
}

func TestAdapterFailure(t *testing.T) {
	ts, _ := setup(t, store.WithAdapter(brokenAdapter{}))

	resp := do(t, http.MethodPost, ts.URL+"/collections/notes/items", map[string]any{"title": "x"})
	expectStatus(t, resp, http.StatusInternalServerError)
	body := decodeJSON(t, resp.Body)
	if body["detail"] != "could not write broken: disk full" {
		t.Fatalf("unexpected detail %v", body["detail"])
	}
}

func TestQueryEscaping(t *testing.T) {
	ts, s := setup(t)
	if _, err := s.Collection("c").Insert(context.Background(), record.MustObject("k", "a b&c")); err != nil {
		t.Fatal(err)
	}
	q := url.Values{"k": {"a b&c"}}
	resp := do(t, http.MethodGet, ts.URL+"/collections/c/items?"+q.Encode(), nil)
	if items := decodeJSONArray(t, resp.Body); len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", items)
	}
}

package adapter_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/stevemurr/persiston/adapter"
	"github.com/stevemurr/persiston/codec"
	"github.com/stevemurr/persiston/record"
)

func sampleDataset() record.Dataset {
	return record.Dataset{
		"users": {
			record.MustObject("name", "foo", "age", 18),
			record.MustObject("name", "bar", "age", 21, "tags", []string{"x"}),
		},
		"list": {},
	}
}

func equalDatasets(t *testing.T, got, want record.Dataset) {
	t.Helper()
	if !record.Equal(got.Value(), want.Value()) {
		t.Fatalf("dataset mismatch:\n got: %v\nwant: %v", got.Value(), want.Value())
	}
}

// runAdapterTests runs a common test suite against any Adapter implementation.
// a must start without a persisted dataset.
func runAdapterTests(t *testing.T, a adapter.Adapter) {
	t.Helper()
	ctx := context.Background()

	t.Run("Read absent", func(t *testing.T) {
		d, err := a.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if d != nil {
			t.Fatalf("expected nil dataset, got %v", d)
		}
	})

	t.Run("Write and Read", func(t *testing.T) {
		if err := a.Write(ctx, sampleDataset()); err != nil {
			t.Fatal(err)
		}
		d, err := a.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		equalDatasets(t, d, sampleDataset())
	})

	t.Run("Write replaces", func(t *testing.T) {
		next := record.Dataset{"users": {record.MustObject("name", "baz")}}
		if err := a.Write(ctx, next); err != nil {
			t.Fatal(err)
		}
		d, err := a.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		equalDatasets(t, d, next)
	})

	t.Run("Write empty", func(t *testing.T) {
		if err := a.Write(ctx, record.Dataset{}); err != nil {
			t.Fatal(err)
		}
		d, err := a.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if d == nil || len(d) != 0 {
			t.Fatalf("expected empty non-nil dataset, got %v", d)
		}
	})
}

func TestMemoryAdapter(t *testing.T) {
	runAdapterTests(t, adapter.NewMemoryAdapter())
}

func TestMemoryAdapterIsolation(t *testing.T) {
	ctx := context.Background()
	m := adapter.NewMemoryAdapter()
	d := sampleDataset()
	if err := m.Write(ctx, d); err != nil {
		t.Fatal(err)
	}
	d["users"][0].Set("name", record.String("changed"))

	got, err := m.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	equalDatasets(t, got, sampleDataset())
	if m.Writes() != 1 {
		t.Fatalf("writes = %d, want 1", m.Writes())
	}
}

func TestFileAdapter(t *testing.T) {
	runAdapterTests(t, adapter.NewFileAdapter(filepath.Join(t.TempDir(), "sub", "test.json")))
}

func TestFileAdapterMemfs(t *testing.T) {
	runAdapterTests(t, adapter.NewFileAdapter("data/test.json", adapter.WithFilesystem(memfs.New())))
}

func TestFileAdapterCodecs(t *testing.T) {
	for _, name := range []string{"json", "yaml", "bson"} {
		t.Run(name, func(t *testing.T) {
			c, err := codec.ByName(name)
			if err != nil {
				t.Fatal(err)
			}
			runAdapterTests(t, adapter.NewFileAdapter(filepath.Join(t.TempDir(), "test."+name), adapter.WithCodec(c)))
		})
	}
}

func TestFileAdapterRead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.json")
	a := adapter.NewFileAdapter(path)

	t.Run("Invalid format", func(t *testing.T) {
		if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := a.Read(ctx)
		var re *adapter.ReadError
		if !errors.As(err, &re) {
			t.Fatalf("expected *ReadError, got %v", err)
		}
		if !errors.Is(err, adapter.ErrRead) {
			t.Fatal("expected errors.Is(err, ErrRead)")
		}
		if !strings.Contains(err.Error(), "could not read file") {
			t.Fatalf("unexpected message: %v", err)
		}
	})

	t.Run("Invalid shape", func(t *testing.T) {
		if err := os.WriteFile(path, []byte(`{"list":{}}`), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := a.Read(ctx); !errors.Is(err, adapter.ErrRead) {
			t.Fatalf("expected read failure, got %v", err)
		}
	})

	t.Run("Successfully", func(t *testing.T) {
		if err := os.WriteFile(path, []byte(`{"list":[]}`), 0o644); err != nil {
			t.Fatal(err)
		}
		d, err := a.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if recs, ok := d["list"]; !ok || len(recs) != 0 {
			t.Fatalf("expected empty list, got %v", d)
		}
	})

	t.Run("Successfully with prefix", func(t *testing.T) {
		if err := os.WriteFile(path, []byte(`###{"list":[]}`), 0o644); err != nil {
			t.Fatal(err)
		}
		prefixed := adapter.NewFileAdapter(path, adapter.WithCodec(codec.Prefixed{Prefix: "###"}))
		d, err := prefixed.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := d["list"]; !ok {
			t.Fatalf("expected list, got %v", d)
		}
	})

	t.Run("Directory reads as absent", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "adir")
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		d, err := adapter.NewFileAdapter(dir).Read(ctx)
		if err != nil || d != nil {
			t.Fatalf("expected absent, got %v, %v", d, err)
		}
	})
}

func TestFileAdapterWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("Could not write", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "adir")
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		err := adapter.NewFileAdapter(dir).Write(ctx, record.Dataset{})
		var we *adapter.WriteError
		if !errors.As(err, &we) {
			t.Fatalf("expected *WriteError, got %v", err)
		}
		if !strings.Contains(err.Error(), "could not write file") {
			t.Fatalf("unexpected message: %v", err)
		}
	})

	t.Run("Encode failure", func(t *testing.T) {
		boom := errors.New("boom")
		c := codec.Funcs{
			EncodeFunc: func(record.Value) ([]byte, error) { return nil, boom },
			DecodeFunc: codec.JSON{}.Decode,
		}
		err := adapter.NewFileAdapter("x.json", adapter.WithFilesystem(memfs.New()), adapter.WithCodec(c)).Write(ctx, record.Dataset{})
		if !errors.Is(err, adapter.ErrWrite) || !errors.Is(err, boom) {
			t.Fatalf("expected wrapped boom, got %v", err)
		}
	})

	t.Run("Successfully with prefix", func(t *testing.T) {
		fs := memfs.New()
		a := adapter.NewFileAdapter("test.json", adapter.WithFilesystem(fs), adapter.WithCodec(codec.Prefixed{Prefix: "###"}))
		if err := a.Write(ctx, record.Dataset{"users": {record.MustObject("name", "foo")}}); err != nil {
			t.Fatal(err)
		}
		raw, err := util.ReadFile(fs, "test.json")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(string(raw), "###") {
			t.Fatalf("missing marker: %q", raw)
		}
	})
}

func TestSqliteAdapter(t *testing.T) {
	s, err := adapter.NewSqliteAdapter(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	runAdapterTests(t, s)
}

func TestSqliteAdapterNames(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	a, err := adapter.NewSqliteAdapter(dbPath, adapter.WithDatasetName("a"))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := adapter.NewSqliteAdapter(dbPath, adapter.WithDatasetName("b"))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := a.Write(ctx, sampleDataset()); err != nil {
		t.Fatal(err)
	}
	d, err := b.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Fatalf("dataset b should be absent, got %v", d)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		backend string
		target  string
	}{
		{"", filepath.Join(dir, "default.json")},
		{"file", filepath.Join(dir, "data.json")},
		{"json", filepath.Join(dir, "legacy.json")},
		{"sqlite", filepath.Join(dir, "sync.db")},
		{"memory", ""},
	}
	for _, tc := range tests {
		t.Run(tc.backend, func(t *testing.T) {
			a, err := adapter.Open(ctx, adapter.Config{Backend: tc.backend, Target: tc.target})
			if err != nil {
				t.Fatal(err)
			}
			if c, ok := a.(interface{ Close() error }); ok {
				defer c.Close()
			}
			runAdapterTests(t, a)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := adapter.Open(ctx, adapter.Config{Backend: "redis"}); err == nil {
			t.Fatal("expected error for unknown backend")
		}
	})

	t.Run("missing target", func(t *testing.T) {
		if _, err := adapter.Open(ctx, adapter.Config{Backend: "file"}); err == nil {
			t.Fatal("expected error for missing target")
		}
	})

	t.Run("bad s3 url", func(t *testing.T) {
		if _, err := adapter.Open(ctx, adapter.Config{Backend: "s3", Target: "bucket/key"}); err == nil {
			t.Fatal("expected error for bad s3 url")
		}
	})
}

package adapter

import (
	"context"
	"sync"

	"github.com/stevemurr/persiston/codec"
	"github.com/stevemurr/persiston/record"
)

// MemoryAdapter keeps the encoded dataset in memory. Data is lost on restart.
// Because it stores encoded bytes, every Read returns fresh records that
// share nothing with what was written. Safe for concurrent use.
type MemoryAdapter struct {
	mu     sync.RWMutex
	codec  codec.Codec
	data   []byte
	exists bool
	writes int
}

func NewMemoryAdapter(opts ...Option) *MemoryAdapter {
	o := newOptions(opts)
	return &MemoryAdapter{codec: o.codec}
}

func (m *MemoryAdapter) Read(_ context.Context) (record.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.exists {
		return nil, nil
	}
	d, err := decodeDataset(m.codec, m.data)
	if err != nil {
		return nil, &ReadError{Source: "memory", Err: err}
	}
	return d, nil
}

func (m *MemoryAdapter) Write(_ context.Context, d record.Dataset) error {
	data, err := m.codec.Encode(d.Value())
	if err != nil {
		return &WriteError{Source: "memory", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.exists = true
	m.writes++
	return nil
}

// Bytes returns the last encoded dataset, or nil if nothing was written.
func (m *MemoryAdapter) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}

// Writes returns how many times Write succeeded.
func (m *MemoryAdapter) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

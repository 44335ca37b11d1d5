// Package store is the persistent byte region behind the feature report.
package store

import (
	"sync"

	"fanmonitor-go/errcode"
)

// Size is the length of the feature-report region in bytes.
const Size = 128

// Store is a byte-addressable region of Size bytes.
type Store interface {
	ReadBlock(addr uint8, buf []byte) error
	WriteBlock(addr uint8, data []byte) error
	Size() int
}

func checkRange(op string, addr uint8, n int) error {
	if int(addr)+n > Size {
		return &errcode.E{C: errcode.OutOfRange, Op: op}
	}
	return nil
}

// ---- RAM backend ----

// Memory keeps the region in RAM. Contents are lost on reset.
type Memory struct {
	mu  sync.Mutex
	buf [Size]byte
}

func NewMemory() *Memory { return &Memory{} }

// NewMemoryFrom seeds the region with init (truncated to Size).
func NewMemoryFrom(init []byte) *Memory {
	m := &Memory{}
	copy(m.buf[:], init)
	return m
}

func (m *Memory) Size() int { return Size }

func (m *Memory) ReadBlock(addr uint8, buf []byte) error {
	if err := checkRange("store.read", addr, len(buf)); err != nil {
		return err
	}
	m.mu.Lock()
	copy(buf, m.buf[addr:])
	m.mu.Unlock()
	return nil
}

func (m *Memory) WriteBlock(addr uint8, data []byte) error {
	if err := checkRange("store.write", addr, len(data)); err != nil {
		return err
	}
	m.mu.Lock()
	copy(m.buf[addr:], data)
	m.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the whole region.
func (m *Memory) Snapshot() [Size]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf
}

package main

import (
	"sync/atomic"

	"tickwatch/internal/dashboard"
)

// uiState holds the bits shared between the render loop, the keypress
// goroutine, and the WebSocket callbacks. Atomics keep the cross-goroutine
// reads and writes race-free.
type uiState struct {
	sortIdx   atomic.Int32
	connected atomic.Bool
}

// SetSort positions the cycle on the given mode, if known.
func (s *uiState) SetSort(mode dashboard.SortBy) {
	for i, m := range sortModes {
		if m == mode {
			s.sortIdx.Store(int32(i))
		}
	}
}

// CycleSort advances to the next sort mode, wrapping around.
func (s *uiState) CycleSort() {
	for {
		cur := s.sortIdx.Load()
		next := (cur + 1) % int32(len(sortModes))
		if s.sortIdx.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Sort returns the active sort mode.
func (s *uiState) Sort() dashboard.SortBy {
	return sortModes[s.sortIdx.Load()]
}

// SetConnected records the feed connection status.
func (s *uiState) SetConnected(up bool) { s.connected.Store(up) }

// Connected reports the feed connection status.
func (s *uiState) Connected() bool { return s.connected.Load() }

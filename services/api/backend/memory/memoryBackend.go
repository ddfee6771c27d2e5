// Copyright 2025 AI Redefined Inc. <dev+slipscan@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memory implements a bounded in-memory slip storage.
package memory

import (
	"context"
	"sync"

	"github.com/slipscan/slipscan/services/api/backend"
)

// DefaultMaxSlips is the number of slips kept in memory before the oldest
// ones get evicted.
const DefaultMaxSlips = 10000

type memoryBackend struct {
	mutex sync.Mutex
	// slips by id, plus the ids in insertion order for eviction and listing
	slips    map[string]*backend.Slip
	order    []string
	maxSlips int
}

// CreateMemoryBackend creates a backend keeping at most maxSlips slips in
// memory, evicting the oldest ones first. maxSlips <= 0 falls back to
// DefaultMaxSlips.
func CreateMemoryBackend(maxSlips int) (backend.Backend, error) {
	if maxSlips <= 0 {
		maxSlips = DefaultMaxSlips
	}
	return &memoryBackend{
		slips:    map[string]*backend.Slip{},
		order:    []string{},
		maxSlips: maxSlips,
	}, nil
}

func (b *memoryBackend) Destroy() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.slips = nil
	b.order = nil
}

func (b *memoryBackend) AddSlip(_ctx context.Context, slip *backend.Slip) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	stored := *slip
	if _, ok := b.slips[stored.ID]; !ok {
		b.order = append(b.order, stored.ID)
	}
	b.slips[stored.ID] = &stored

	for len(b.order) > b.maxSlips {
		evicted := b.order[0]
		b.order = b.order[1:]
		delete(b.slips, evicted)
	}

	return nil
}

func (b *memoryBackend) GetSlip(_ctx context.Context, slipID string) (*backend.Slip, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	slip, ok := b.slips[slipID]
	if !ok {
		return nil, &backend.UnknownSlipError{SlipID: slipID}
	}
	retrieved := *slip
	return &retrieved, nil
}

func (b *memoryBackend) ListSlips(_ctx context.Context, filter backend.Filter) ([]*backend.Slip, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	slips := []*backend.Slip{}
	skipped := 0
	// most recent first
	for slipIdx := len(b.order) - 1; slipIdx >= 0; slipIdx-- {
		slip := b.slips[b.order[slipIdx]]
		if !matchesFilter(slip, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		retrieved := *slip
		slips = append(slips, &retrieved)
		if filter.Limit > 0 && len(slips) >= filter.Limit {
			break
		}
	}
	return slips, nil
}

func (b *memoryBackend) DeleteSlip(_ctx context.Context, slipID string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if _, ok := b.slips[slipID]; !ok {
		return &backend.UnknownSlipError{SlipID: slipID}
	}
	delete(b.slips, slipID)
	for slipIdx, id := range b.order {
		if id == slipID {
			b.order = append(b.order[:slipIdx], b.order[slipIdx+1:]...)
			break
		}
	}
	return nil
}

func (b *memoryBackend) CountByReference(_ctx context.Context, reference string) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	count := 0
	for _, slip := range b.slips {
		if slip.Reference != nil && *slip.Reference == reference {
			count++
		}
	}
	return count, nil
}

func matchesFilter(slip *backend.Slip, filter backend.Filter) bool {
	if filter.Reference != "" && (slip.Reference == nil || *slip.Reference != filter.Reference) {
		return false
	}
	if filter.Source != "" && slip.Source != filter.Source {
		return false
	}
	return true
}

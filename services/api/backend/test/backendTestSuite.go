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

// Package test holds the storage behavior suite every backend implementation
// is run against.
package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/openlyinc/pointy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipscan/slipscan/services/api/backend"
)

var suiteStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func generateSlip(slipIdx int, source backend.Source, reference *string) *backend.Slip {
	amount := decimal.NewFromInt(int64(100 + slipIdx))
	timestamp := suiteStart.Add(time.Duration(slipIdx) * time.Minute)
	slip := &backend.Slip{
		ID:        fmt.Sprintf("slip-%03d", slipIdx),
		Source:    source,
		Amount:    &amount,
		Timestamp: &timestamp,
		Reference: reference,
		RawText:   fmt.Sprintf("slip number %d", slipIdx),
		CreatedAt: suiteStart.Add(time.Duration(slipIdx) * time.Minute),
	}
	if source == backend.SourceImage {
		slip.ImageHash = fmt.Sprintf("%064d", slipIdx)
		slip.MediaType = "image/png"
	}
	return slip
}

func extractSlipIDs(slips []*backend.Slip) []string {
	slipIDs := []string{}
	for _, slip := range slips {
		slipIDs = append(slipIDs, slip.ID)
	}
	return slipIDs
}

func assertSlipEqual(t *testing.T, expected *backend.Slip, actual *backend.Slip) {
	assert.Equal(t, expected.ID, actual.ID)
	assert.Equal(t, expected.Source, actual.Source)
	if expected.Amount != nil {
		if assert.NotNil(t, actual.Amount) {
			assert.True(t, expected.Amount.Equal(*actual.Amount), "expected amount %v got %v", expected.Amount, actual.Amount)
		}
	} else {
		assert.Nil(t, actual.Amount)
	}
	if expected.Timestamp != nil {
		if assert.NotNil(t, actual.Timestamp) {
			assert.True(t, expected.Timestamp.Equal(*actual.Timestamp), "expected timestamp %v got %v", expected.Timestamp, actual.Timestamp)
		}
	} else {
		assert.Nil(t, actual.Timestamp)
	}
	assert.Equal(t, expected.Reference, actual.Reference)
	assert.Equal(t, expected.RawText, actual.RawText)
	assert.Equal(t, expected.ImageHash, actual.ImageHash)
	assert.Equal(t, expected.MediaType, actual.MediaType)
	assert.True(t, expected.CreatedAt.Equal(actual.CreatedAt), "expected created at %v got %v", expected.CreatedAt, actual.CreatedAt)
}

// RunSuite runs the full backend test suite
func RunSuite(t *testing.T, createBackend func() backend.Backend, destroyBackend func(backend.Backend)) {
	t.Run("TestCreateBackend", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		assert.NotNil(t, b)
	})
	t.Run("TestAddAndGetSlip", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		added := generateSlip(1, backend.SourceImage, pointy.String("scb90817263rq"))
		require.NoError(t, b.AddSlip(context.Background(), added))

		retrieved, err := b.GetSlip(context.Background(), added.ID)
		require.NoError(t, err)
		assertSlipEqual(t, added, retrieved)
	})
	t.Run("TestAddSlipWithoutParsedFields", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		added := generateSlip(2, backend.SourceText, nil)
		added.Amount = nil
		added.Timestamp = nil
		require.NoError(t, b.AddSlip(context.Background(), added))

		retrieved, err := b.GetSlip(context.Background(), added.ID)
		require.NoError(t, err)
		assertSlipEqual(t, added, retrieved)
	})
	t.Run("TestUpdateSlip", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		added := generateSlip(3, backend.SourceImage, pointy.String("scb90817263rq"))
		require.NoError(t, b.AddSlip(context.Background(), added))

		updated := generateSlip(3, backend.SourceImage, pointy.String("scb90817263rq"))
		updated.RawText = "corrected raw text"
		require.NoError(t, b.AddSlip(context.Background(), updated))

		retrieved, err := b.GetSlip(context.Background(), added.ID)
		require.NoError(t, err)
		assertSlipEqual(t, updated, retrieved)

		slips, err := b.ListSlips(context.Background(), backend.Filter{})
		require.NoError(t, err)
		assert.Len(t, slips, 1)
	})
	t.Run("TestGetUnknownSlip", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		_, err := b.GetSlip(context.Background(), "slip-missing")
		require.Error(t, err)

		unknownErr := &backend.UnknownSlipError{}
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "slip-missing", unknownErr.SlipID)
	})
	t.Run("TestListSlips", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		for slipIdx := 0; slipIdx < 5; slipIdx++ {
			require.NoError(t, b.AddSlip(context.Background(), generateSlip(slipIdx, backend.SourceImage, nil)))
		}

		slips, err := b.ListSlips(context.Background(), backend.Filter{})
		require.NoError(t, err)
		assert.Equal(
			t,
			[]string{"slip-004", "slip-003", "slip-002", "slip-001", "slip-000"},
			extractSlipIDs(slips),
		)
	})
	t.Run("TestListSlipsFilters", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		require.NoError(t, b.AddSlip(context.Background(), generateSlip(0, backend.SourceImage, pointy.String("kbnk73619a02"))))
		require.NoError(t, b.AddSlip(context.Background(), generateSlip(1, backend.SourceText, pointy.String("kbnk73619a02"))))
		require.NoError(t, b.AddSlip(context.Background(), generateSlip(2, backend.SourceText, pointy.String("scb90817263rq"))))
		require.NoError(t, b.AddSlip(context.Background(), generateSlip(3, backend.SourceImage, nil)))

		slips, err := b.ListSlips(context.Background(), backend.Filter{Reference: "kbnk73619a02"})
		require.NoError(t, err)
		assert.Equal(t, []string{"slip-001", "slip-000"}, extractSlipIDs(slips))

		slips, err = b.ListSlips(context.Background(), backend.Filter{Source: backend.SourceText})
		require.NoError(t, err)
		assert.Equal(t, []string{"slip-002", "slip-001"}, extractSlipIDs(slips))

		slips, err = b.ListSlips(context.Background(), backend.Filter{Reference: "kbnk73619a02", Source: backend.SourceImage})
		require.NoError(t, err)
		assert.Equal(t, []string{"slip-000"}, extractSlipIDs(slips))

		slips, err = b.ListSlips(context.Background(), backend.Filter{Reference: "unknown-ref"})
		require.NoError(t, err)
		assert.Empty(t, slips)
	})
	t.Run("TestListSlipsPagination", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		for slipIdx := 0; slipIdx < 10; slipIdx++ {
			require.NoError(t, b.AddSlip(context.Background(), generateSlip(slipIdx, backend.SourceImage, nil)))
		}

		slips, err := b.ListSlips(context.Background(), backend.Filter{Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{"slip-009", "slip-008", "slip-007"}, extractSlipIDs(slips))

		slips, err = b.ListSlips(context.Background(), backend.Filter{Limit: 3, Offset: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{"slip-006", "slip-005", "slip-004"}, extractSlipIDs(slips))

		slips, err = b.ListSlips(context.Background(), backend.Filter{Limit: 5, Offset: 8})
		require.NoError(t, err)
		assert.Equal(t, []string{"slip-001", "slip-000"}, extractSlipIDs(slips))

		slips, err = b.ListSlips(context.Background(), backend.Filter{Limit: 5, Offset: 20})
		require.NoError(t, err)
		assert.Empty(t, slips)

		slips, err = b.ListSlips(context.Background(), backend.Filter{Offset: 7})
		require.NoError(t, err)
		assert.Equal(t, []string{"slip-002", "slip-001", "slip-000"}, extractSlipIDs(slips))
	})
	t.Run("TestDeleteSlip", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		kept := generateSlip(0, backend.SourceImage, nil)
		deleted := generateSlip(1, backend.SourceText, nil)
		require.NoError(t, b.AddSlip(context.Background(), kept))
		require.NoError(t, b.AddSlip(context.Background(), deleted))

		require.NoError(t, b.DeleteSlip(context.Background(), deleted.ID))

		_, err := b.GetSlip(context.Background(), deleted.ID)
		unknownErr := &backend.UnknownSlipError{}
		require.ErrorAs(t, err, &unknownErr)

		retrieved, err := b.GetSlip(context.Background(), kept.ID)
		require.NoError(t, err)
		assertSlipEqual(t, kept, retrieved)

		err = b.DeleteSlip(context.Background(), deleted.ID)
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, deleted.ID, unknownErr.SlipID)
	})
	t.Run("TestCountByReference", func(t *testing.T) {
		b := createBackend()
		defer destroyBackend(b)

		count, err := b.CountByReference(context.Background(), "kbnk73619a02")
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		require.NoError(t, b.AddSlip(context.Background(), generateSlip(0, backend.SourceImage, pointy.String("kbnk73619a02"))))
		require.NoError(t, b.AddSlip(context.Background(), generateSlip(1, backend.SourceText, pointy.String("kbnk73619a02"))))
		require.NoError(t, b.AddSlip(context.Background(), generateSlip(2, backend.SourceText, pointy.String("scb90817263rq"))))
		require.NoError(t, b.AddSlip(context.Background(), generateSlip(3, backend.SourceImage, nil)))

		count, err = b.CountByReference(context.Background(), "kbnk73619a02")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = b.CountByReference(context.Background(), "scb90817263rq")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = b.CountByReference(context.Background(), "unknown-ref")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

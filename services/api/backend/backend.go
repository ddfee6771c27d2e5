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

package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source tells how a slip entered the service.
type Source string

const (
	SourceImage Source = "image"
	SourceText  Source = "text"
)

// Slip is a parsed payment slip record.
type Slip struct {
	ID        string
	Source    Source
	Amount    *decimal.Decimal
	Timestamp *time.Time
	Reference *string
	RawText   string
	// ImageHash and MediaType describe the uploaded image, both are empty for
	// text submissions.
	ImageHash string
	MediaType string
	CreatedAt time.Time
}

// Filter narrows and paginates ListSlips results.
type Filter struct {
	// Reference selects slips with this exact reference number, "" selects
	// everything.
	Reference string
	// Source selects slips from this source, "" selects everything.
	Source Source
	// Limit caps the number of returned slips, <= 0 means no cap.
	Limit int
	// Offset skips that many slips from the most recent one.
	Offset int
}

// Backend stores parsed slips, most recent first.
type Backend interface {
	// Destroy destroys the backend, releasing its resources, it should be the
	// last method called.
	Destroy()

	AddSlip(ctx context.Context, slip *Slip) error
	GetSlip(ctx context.Context, slipID string) (*Slip, error)
	ListSlips(ctx context.Context, filter Filter) ([]*Slip, error)
	DeleteSlip(ctx context.Context, slipID string) error

	// CountByReference returns the number of stored slips carrying the given
	// reference number.
	CountByReference(ctx context.Context, reference string) (int, error)
}

// UnknownSlipError is raised when trying to operate on an unknown slip
type UnknownSlipError struct {
	SlipID string
}

func (e *UnknownSlipError) Error() string {
	return fmt.Sprintf("no slip found with id %q", e.SlipID)
}

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

// Package slip extracts structured payment information from the raw text of
// Thai bank transfer slips. The text is usually the output of an OCR pass and
// is full of noise, so extraction is a cascade of increasingly permissive
// heuristics rather than a grammar.
package slip

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimeZone is the zone slips are assumed to be issued in when the
// service is not configured otherwise.
const DefaultTimeZone = "Asia/Bangkok"

// Parsed holds the fields extracted from the text of a payment slip. A nil
// field means the corresponding information was not found.
type Parsed struct {
	Amount    *decimal.Decimal
	Timestamp *time.Time
	Reference *string
}

// Parser extracts payment fields from slip text. It is safe for concurrent
// use.
type Parser struct {
	location *time.Location
	now      func() time.Time
}

// NewParser creates a parser anchoring time of day only timestamps to the
// current date in the given location.
func NewParser(location *time.Location) *Parser {
	if location == nil {
		location = time.Local
	}
	return &Parser{
		location: location,
		now:      time.Now,
	}
}

// Parse extracts the amount, timestamp and reference number from the text of
// a slip.
func (p *Parser) Parse(text string) Parsed {
	return Parsed{
		Amount:    p.ParseAmount(text),
		Timestamp: p.ParseDateTime(text),
		Reference: p.ParseReference(text),
	}
}

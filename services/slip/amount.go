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

package slip

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// A number next to an amount keyword, either "<keyword> ... <number>" or
// "<number> ... <currency or keyword>".
var amountKeywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:total|amount|รวม|ยอด|ชำระ|เป็นเงิน)\D*?(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?)`),
	regexp.MustCompile(`(?i)(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?)\D*?(?:บาท|baht|thb|total|amount|รวม|ยอด|ชำระ|เป็นเงิน)`),
}

// Keyword-less fallbacks, from the most to the least amount looking shape.
var amountFallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,3}(?:,\d{3})*(?:\.\d{2}))`),
	regexp.MustCompile(`(\d+\.\d{2})`),
	regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)`),
	regexp.MustCompile(`(\d+)`),
}

var simpleAmountPattern = regexp.MustCompile(`(?i)^\s*(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?)\s*(?:บาท|baht|thb|$)`)

var simpleAmountFallbackPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*$`)

// Numbers at or below this value are more likely stray fragments of a date or
// a percentage than a transfer amount.
var minPlausibleAmount = decimal.RequireFromString("0.99")

// ParseAmount finds the transfer amount in the slip text. Keyword guided
// matches win over bare numbers, and candidates that do not look like a
// plausible amount are discarded.
func (p *Parser) ParseAmount(text string) *decimal.Decimal {
	lower := strings.ToLower(text)

	for _, pattern := range amountKeywordPatterns {
		match := pattern.FindStringSubmatch(lower)
		if match == nil {
			continue
		}
		amount := parseSeparatedNumber(match[1])
		if amount != nil && amount.GreaterThan(minPlausibleAmount) {
			return amount
		}
	}

	for _, pattern := range amountFallbackPatterns {
		match := pattern.FindStringSubmatch(lower)
		if match == nil {
			continue
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", ""))
		if err == nil && amount.GreaterThan(minPlausibleAmount) {
			return &amount
		}
	}

	return nil
}

// ParseSimpleAmount parses a text that is expected to be nothing but an
// amount, eg. "1,234.56 บาท". It is stricter than ParseAmount and accepts any
// positive value.
func (p *Parser) ParseSimpleAmount(text string) *decimal.Decimal {
	trimmed := strings.TrimSpace(text)

	if match := simpleAmountPattern.FindStringSubmatch(trimmed); match != nil {
		raw := strings.ReplaceAll(match[1], ",", "")
		if strings.Count(raw, ".") > 1 {
			// all the dots but the last one are thousands separators
			lastDot := strings.LastIndex(raw, ".")
			raw = strings.ReplaceAll(raw[:lastDot], ".", "") + raw[lastDot:]
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil
		}
		if amount.IsPositive() {
			return &amount
		}
	}

	if match := simpleAmountFallbackPattern.FindStringSubmatch(trimmed); match != nil {
		amount, err := decimal.NewFromString(match[1])
		if err == nil && amount.IsPositive() {
			return &amount
		}
	}

	return nil
}

// parseSeparatedNumber converts a captured number to a decimal. Commas are
// always thousands separators; dots are too when there is more than one.
func parseSeparatedNumber(raw string) *decimal.Decimal {
	raw = strings.ReplaceAll(raw, ",", "")
	if strings.Count(raw, ".") > 1 {
		raw = strings.ReplaceAll(raw, ".", "")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &amount
}

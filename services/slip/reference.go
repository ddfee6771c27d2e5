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
)

// Reference number shapes, from keyword guided to bare alphanumeric runs.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Ref\s*|Reference\s*|เลขที่อ้างอิง\s*|Ref No\.\s*|TRAN ID:\s*|TRN ID:\s*|Trx Ref:\s*|TRN\s*|Txn\s*|Transaction No\.\s*|หมายเลขอ้างอิง\s*|รหัสอ้างอิง\s*|รหัสรายการ\s*|หมายเลขรายการ\s*|เลขที่อ้างอิงรายการ\s*)(\S{8,40})`),
	regexp.MustCompile(`(\d{10,30})`),
	regexp.MustCompile(`(?i)(?:R\s*|TID\s*|Tran ID\s*|Ref\s*)\s*(\d{6,25})`),
	regexp.MustCompile(`(?i)([A-Z0-9]{8,40})`),
}

// ParseReference finds the transaction reference number in the slip text. A
// candidate that parses as a date, a time or an amount is discarded, which
// filters out the timestamps and totals the broad patterns inevitably catch.
func (p *Parser) ParseReference(text string) *string {
	lower := strings.ToLower(text)

	for _, pattern := range referencePatterns {
		match := pattern.FindStringSubmatch(lower)
		if match == nil {
			continue
		}

		candidate := strings.TrimSpace(match[1])
		if p.looksLikeDateTime(candidate) {
			continue
		}
		if p.ParseSimpleAmount(candidate) != nil {
			continue
		}
		return &candidate
	}

	return nil
}

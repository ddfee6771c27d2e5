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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	parser := NewParser(nil)

	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{"thai keyword prefix", "ยอดเงิน 1,234.56 บาท", "1234.56"},
		{"english keyword prefix", "Total: 500.00", "500"},
		{"currency suffix", "250.75 บาท", "250.75"},
		{"currency suffix across words", "โอนเงิน 120 บาท", "120"},
		{"thousands separators", "รวม 10,000 บาท", "10000"},
		{"dotted thousands separators", "TOTAL 1.234.56", "123456"},
		{"keyword on another number", "1234.56 baht", "234.56"},
		{"bare decimal fallback", "some text 1,234.56 other", "1234.56"},
		{"bare integer fallback", "version 2 build", "2"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			amount := parser.ParseAmount(testCase.text)
			require.NotNil(t, amount)
			assert.Equal(t, testCase.expected, amount.String())
		})
	}
}

func TestParseAmountNotFound(t *testing.T) {
	parser := NewParser(nil)

	assert.Nil(t, parser.ParseAmount(""))
	assert.Nil(t, parser.ParseAmount("no numbers here"))
	// sub-unit values are discarded as implausible
	assert.Nil(t, parser.ParseAmount("0.50"))
	assert.Nil(t, parser.ParseAmount("จ่าย 0.25 บาท"))
}

func TestParseSimpleAmount(t *testing.T) {
	parser := NewParser(nil)

	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{"plain integer", " 500 ", "500"},
		{"decimal with currency", "1,234.56 บาท", "1234.56"},
		{"currency code", "99.95 THB", "99.95"},
		{"dotted separators keep last dot", "1.234.56", "1234.56"},
		{"short fraction", "12.5", "12.5"},
		{"long digit run", "1234567890", "1234567890"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			amount := parser.ParseSimpleAmount(testCase.text)
			require.NotNil(t, amount)
			assert.Equal(t, testCase.expected, amount.String())
		})
	}
}

func TestParseSimpleAmountNotFound(t *testing.T) {
	parser := NewParser(nil)

	assert.Nil(t, parser.ParseSimpleAmount("abc"))
	assert.Nil(t, parser.ParseSimpleAmount("0"))
	assert.Nil(t, parser.ParseSimpleAmount("0.00 บาท"))
	assert.Nil(t, parser.ParseSimpleAmount("100 and more text"))
	assert.Nil(t, parser.ParseSimpleAmount(""))
}

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
	"strconv"
	"strings"
	"time"
)

// Thai month names, abbreviated forms first so they are not clobbered by the
// full ones.
var thaiMonthReplacer = strings.NewReplacer(
	"ม.ค.", "Jan",
	"ก.พ.", "Feb",
	"มี.ค.", "Mar",
	"เม.ย.", "Apr",
	"พ.ค.", "May",
	"มิ.ย.", "Jun",
	"ก.ค.", "Jul",
	"ส.ค.", "Aug",
	"ก.ย.", "Sep",
	"ต.ค.", "Oct",
	"พ.ย.", "Nov",
	"ธ.ค.", "Dec",
	"มกราคม", "January",
	"กุมภาพันธ์", "February",
	"มีนาคม", "March",
	"เมษายน", "April",
	"พฤษภาคม", "May",
	"มิถุนายน", "June",
	"กรกฎาคม", "July",
	"สิงหาคม", "August",
	"กันยายน", "September",
	"ตุลาคม", "October",
	"พฤศจิกายน", "November",
	"ธันวาคม", "December",
)

// Datetime shapes found on slips, from the most to the least specific. The
// first pattern with a parseable match wins.
var dateTimePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{2}[-/]\d{2}[-/]\d{4}\s+\d{2}:\d{2}:\d{2}`),
	regexp.MustCompile(`\d{2}[-/]\d{2}[-/]\d{4}\s+\d{2}:\d{2}`),
	regexp.MustCompile(`\d{2}[-/]\d{2}[-/]\d{2}\s+\d{2}:\d{2}:\d{2}`),
	regexp.MustCompile(`\d{2}[-/]\d{2}[-/]\d{2}\s+\d{2}:\d{2}`),
	regexp.MustCompile(`(?i)\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4}\s+\d{2}:\d{2}`),
	regexp.MustCompile(`(?i)\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2}\s+\d{2}:\d{2}`),
	regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}\s+\d{2}:\d{2}:\d{2}`),
	regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}\s+\d{2}:\d{2}`),
	regexp.MustCompile(`\d{2}[-/]\d{2}[-/]\d{4}`),
	regexp.MustCompile(`\d{2}[-/]\d{2}[-/]\d{2}`),
	regexp.MustCompile(`\d{2}:\d{2}:\d{2}`),
	regexp.MustCompile(`\d{2}:\d{2}`),
}

// Layouts tried against every matched candidate, in order.
var dateTimeLayouts = []string{
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"02-01-06 15:04:05",
	"02/01/06 15:04:05",
	"02/01/06 15:04",
	"02-01-06 15:04",
	"2 Jan 2006 15:04",
	"2 Jan 06 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-01-2006",
	"02/01/2006",
	"02-01-06",
	"02/01/06",
	"15:04:05",
	"15:04",
}

var timeOnlyLayouts = map[string]bool{
	"15:04:05": true,
	"15:04":    true,
}

// Buddhist Era years run 543 years ahead of the Gregorian calendar. Anything
// above this floor is assumed to be a BE year.
const buddhistYearFloor = 2500

var fourDigitRun = regexp.MustCompile(`\d{4}`)

var whitespaceRun = regexp.MustCompile(`\s+`)

var monthToken = regexp.MustCompile(`[A-Za-z]+`)

// ParseDateTime finds the transaction timestamp in the slip text. Thai month
// names are translated first, Buddhist Era years are converted to the
// Gregorian calendar, and a bare time of day is anchored to the current date
// in the parser location.
func (p *Parser) ParseDateTime(text string) *time.Time {
	processed := thaiMonthReplacer.Replace(text)

	for _, pattern := range dateTimePatterns {
		candidate := pattern.FindString(processed)
		if candidate == "" {
			continue
		}
		if parsed := p.parseCandidate(candidate); parsed != nil {
			return parsed
		}
	}

	return nil
}

func (p *Parser) parseCandidate(candidate string) *time.Time {
	candidate = normalizeCandidate(candidate)

	for _, layout := range dateTimeLayouts {
		if strings.Contains(layout, "2006") {
			if converted, ok := toGregorianYear(candidate); ok {
				parsed, err := time.ParseInLocation(layout, converted, p.location)
				if err != nil {
					continue
				}
				return p.anchorTimeOnly(layout, parsed)
			}
		}
		parsed, err := time.ParseInLocation(layout, candidate, p.location)
		if err != nil {
			continue
		}
		return p.anchorTimeOnly(layout, parsed)
	}

	return nil
}

// anchorTimeOnly turns a bare time of day into a full timestamp on today's
// date.
func (p *Parser) anchorTimeOnly(layout string, parsed time.Time) *time.Time {
	if !timeOnlyLayouts[layout] {
		return &parsed
	}
	now := p.now().In(p.location)
	anchored := time.Date(
		now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0,
		p.location,
	)
	return &anchored
}

// looksLikeDateTime reports whether a reference candidate is actually a date
// or a time in disguise.
func (p *Parser) looksLikeDateTime(candidate string) bool {
	candidate = strings.ReplaceAll(candidate, "/", "-")
	if converted, ok := toGregorianYear(candidate); ok {
		candidate = converted
	}

	for _, layout := range dateTimeLayouts {
		if _, err := time.ParseInLocation(layout, candidate, p.location); err == nil {
			return true
		}
	}
	return false
}

// normalizeCandidate compensates for strictness of time.Parse: whitespace
// runs collapse to a single space and month names get their canonical
// capitalization.
func normalizeCandidate(candidate string) string {
	candidate = whitespaceRun.ReplaceAllString(candidate, " ")
	return monthToken.ReplaceAllStringFunc(candidate, func(token string) string {
		return strings.ToUpper(token[:1]) + strings.ToLower(token[1:])
	})
}

// toGregorianYear rewrites the first 4-digit year of the candidate when it is
// a Buddhist Era year, eg. "15/01/2567 10:23" becomes "15/01/2024 10:23".
func toGregorianYear(candidate string) (string, bool) {
	yearStr := fourDigitRun.FindString(candidate)
	if yearStr == "" {
		return candidate, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year <= buddhistYearFloor {
		return candidate, false
	}
	return strings.ReplaceAll(candidate, yearStr, strconv.Itoa(year-543)), true
}

package station

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ruleLineRe matches "<station id> omit: <period>", e.g.
	// "CHM00052836  omit: 0-1948".
	ruleLineRe = regexp.MustCompile(`^([A-Z0-9]+)\s+omit:\s+(\S+)$`)

	// yearRangeRe matches an inclusive year range, "1880-1950".
	yearRangeRe = regexp.MustCompile(`^(\d{1,4})-(\d{1,4})$`)

	// yearMonthRe matches a single month, "2021/09".
	yearMonthRe = regexp.MustCompile(`^(\d{1,4})/(\d{1,2})$`)
)

// OmitRule removes part of one station's record.
type OmitRule struct {
	StationID string
	FromYear  int
	ToYear    int
	// Month limits the rule to one month of FromYear. Zero means all months.
	Month int
}

func (r OmitRule) covers(rd Reading) bool {
	if rd.Year < r.FromYear || rd.Year > r.ToYear {
		return false
	}
	return r.Month == 0 || rd.Month == r.Month
}

// OmitRules groups rules by station identifier.
type OmitRules map[string][]OmitRule

// ParseOmitRules reads the GISTEMP drop-rule format: one rule per line,
// blank lines and lines starting with '#' ignored.
//
//	CHM00052836  omit: 0-1948
//	RSM00024266  omit: 2021/09
func ParseOmitRules(text string) (OmitRules, error) {
	rules := OmitRules{}
	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := ruleLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("omit rules line %d: cannot parse %q", lineNo, line)
		}
		rule, err := parsePeriod(m[1], m[2])
		if err != nil {
			return nil, fmt.Errorf("omit rules line %d: %w", lineNo, err)
		}
		rules[rule.StationID] = append(rules[rule.StationID], rule)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read omit rules: %w", err)
	}
	return rules, nil
}

func parsePeriod(id, period string) (OmitRule, error) {
	if m := yearRangeRe.FindStringSubmatch(period); m != nil {
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		if from > to {
			return OmitRule{}, fmt.Errorf("station %s: range %q ends before it starts", id, period)
		}
		return OmitRule{StationID: id, FromYear: from, ToYear: to}, nil
	}
	if m := yearMonthRe.FindStringSubmatch(period); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return OmitRule{}, fmt.Errorf("station %s: month %d out of range", id, month)
		}
		return OmitRule{StationID: id, FromYear: year, ToYear: year, Month: month}, nil
	}
	return OmitRule{}, fmt.Errorf("station %s: unrecognized period %q", id, period)
}

// Apply removes the readings the rules omit for s. It reports false when the
// rules removed every reading of s, meaning the station should be dropped.
func (r OmitRules) Apply(s Station) (Station, bool) {
	rules := r[s.ID]
	if len(rules) == 0 {
		return s, true
	}

	kept := make([]Reading, 0, len(s.Series))
	for _, rd := range s.Series {
		if !omitted(rules, rd) {
			kept = append(kept, rd)
		}
	}
	if len(s.Series) > 0 && len(kept) == 0 {
		return Station{}, false
	}
	s.Series = kept
	return s, true
}

func omitted(rules []OmitRule, rd Reading) bool {
	for _, rule := range rules {
		if rule.covers(rd) {
			return true
		}
	}
	return false
}

// Len returns the total number of rules.
func (r OmitRules) Len() int {
	n := 0
	for _, rules := range r {
		n += len(rules)
	}
	return n
}

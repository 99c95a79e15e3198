package extract

import (
	"regexp"
	"strings"

	"suiverify/internal/document/models"
)

const panLen = 10

var (
	panFormat = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	panLabel  = regexp.MustCompile(`PERMANENT\s*ACCOUNT\s*NUMBER|\bPAN\b|ACCOUNT\s*NUMBER\s*CARD`)
	alnumRun  = regexp.MustCompile(`[A-Z0-9]+`)
)

// headerKeywords are compacted header phrases that produce look-alike noise.
var headerKeywords = []string{
	"INCOMETAXDEPARTMENT",
	"GOVERNMENTOF",
	"ACCOUNTNUMBER",
	"PERMANENTACCOUNT",
	"CARDSIGNATURE",
}

var (
	// digitFixes apply at positions 5-8.
	digitFixes = map[byte]byte{
		'O': '0', 'I': '1', 'L': '1', 'S': '5', 'Z': '2',
		'B': '8', 'G': '6', 'J': '5', 'R': '4', 'T': '7',
	}
	// letterFixes apply at positions 0-4 and 9.
	letterFixes = map[byte]byte{
		'0': 'O', '1': 'I', '5': 'S', '8': 'B', '3': 'E',
		'2': 'Z', '6': 'G', '9': 'G', '4': 'A', '7': 'T',
	}
)

// ValidPAN reports whether s is a well-formed PAN.
func ValidPAN(s string) bool {
	return panFormat.MatchString(s)
}

func isDigitPosition(i int) bool {
	return i >= 5 && i <= 8
}

// CorrectPAN applies the look-alike tables to a 10 character token, only at
// positions whose character class mismatches. Other lengths pass through.
func CorrectPAN(s string) string {
	s = strings.ToUpper(s)
	if len(s) != panLen {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if isDigitPosition(i) {
			if d, ok := digitFixes[c]; ok {
				b[i] = d
			}
			continue
		}
		if l, ok := letterFixes[c]; ok {
			b[i] = l
		}
	}
	return string(b)
}

type panSource struct {
	ID     models.StrategyID
	Tokens func(text string) []string
}

func panSources() []panSource {
	return []panSource{
		{ID: models.StrategyLabel, Tokens: labelTokens},
		{ID: models.StrategyRegex, Tokens: regexTokens},
		{ID: models.StrategyScan, Tokens: scanTokens},
	}
}

// labelTokens windows the label line and the two lines after it.
func labelTokens(text string) []string {
	lines := strings.Split(strings.ToUpper(text), "\n")
	var out []string
	for i, line := range lines {
		if !panLabel.MatchString(line) {
			continue
		}
		for j := i; j < len(lines) && j < i+3; j++ {
			out = append(out, windows(compact(lines[j]))...)
		}
	}
	return out
}

// regexTokens keeps 10 character alphanumeric runs, joining two runs split by
// a single space.
func regexTokens(text string) []string {
	up := strings.ToUpper(text)
	locs := alnumRun.FindAllStringIndex(up, -1)
	var out []string
	for i, loc := range locs {
		run := up[loc[0]:loc[1]]
		if len(run) == panLen {
			out = append(out, run)
		}
		if i+1 < len(locs) {
			next := locs[i+1]
			if up[loc[1]:next[0]] == " " && len(run)+next[1]-next[0] == panLen {
				out = append(out, run+up[next[0]:next[1]])
			}
		}
	}
	return out
}

// scanTokens windows the whole text with whitespace removed.
func scanTokens(text string) []string {
	return windows(compact(strings.ToUpper(text)))
}

func compact(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), "")
}

// windows returns every plausible 10 byte window that does not overlap a
// header keyword.
func windows(s string) []string {
	var spans [][2]int
	for _, kw := range headerKeywords {
		for off := 0; ; {
			i := strings.Index(s[off:], kw)
			if i < 0 {
				break
			}
			spans = append(spans, [2]int{off + i, off + i + len(kw)})
			off += i + 1
		}
	}
	var out []string
next:
	for i := 0; i+panLen <= len(s); i++ {
		for _, sp := range spans {
			if i < sp[1] && sp[0] < i+panLen {
				continue next
			}
		}
		w := s[i : i+panLen]
		if isAlnum(w) && plausible(w) {
			out = append(out, w)
		}
	}
	return out
}

func isAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// plausible needs at least five letters and four digits or digit look-alikes.
func plausible(w string) bool {
	letters, digits := 0, 0
	for i := 0; i < len(w); i++ {
		c := w[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case strings.IndexByte("OILSZG", c) >= 0:
			letters++
			digits++
		default:
			letters++
		}
	}
	return letters >= 5 && digits >= 4
}

type panHit struct {
	value     string
	candidate int
	strategy  models.StrategyID
}

// panHits lists every accepted token in discovery order: candidate first,
// then source order, then position within the source.
func panHits(p *pool) []panHit {
	var hits []panHit
	for ci, text := range p.texts {
		for _, src := range panSources() {
			for _, tok := range src.Tokens(text) {
				v := CorrectPAN(tok)
				if ValidPAN(v) {
					hits = append(hits, panHit{value: v, candidate: ci, strategy: src.ID})
				}
			}
		}
	}
	return hits
}

// vote picks the value seen in the most distinct candidates. Ties go to the
// value that occurred first.
func vote(hits []panHit) (panHit, bool) {
	first := map[string]panHit{}
	seen := map[string]map[int]struct{}{}
	var order []string
	for _, h := range hits {
		if _, ok := first[h.value]; !ok {
			first[h.value] = h
			seen[h.value] = map[int]struct{}{}
			order = append(order, h.value)
		}
		seen[h.value][h.candidate] = struct{}{}
	}
	var best string
	bestCount := 0
	for _, v := range order {
		if n := len(seen[v]); n > bestCount {
			best, bestCount = v, n
		}
	}
	if bestCount == 0 {
		return panHit{}, false
	}
	return first[best], true
}

func resolvePAN(p *pool) (models.ExtractedField, bool) {
	h, ok := vote(panHits(p))
	if !ok {
		return models.ExtractedField{}, false
	}
	return models.ExtractedField{
		Name:           models.FieldDocumentNumber,
		Value:          h.value,
		Strategy:       h.strategy,
		CandidateIndex: h.candidate,
		Valid:          true,
	}, true
}

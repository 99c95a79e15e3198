package extract

import (
	"regexp"
	"strings"

	"suiverify/internal/document/models"
)

var (
	secondaryLabel = regexp.MustCompile(`(?i)FATHER['’]?S?\s*NAME|/\s*FN\b|पिता(?:\s*का\s*नाम)?`)
	nameLabel      = regexp.MustCompile(`(?i)\bNAME\b`)
	parentLabel    = regexp.MustCompile(`(?i)FATHER|MOTHER|/\s*FN\b`)
	stopLabel      = regexp.MustCompile(`(?i)FATHER|MOTHER|DATE|BIRTH|SIGNATURE|ADDRESS|/\s*FN\b`)
	upperWords     = regexp.MustCompile(`^[A-Z]{3,}(?:\s+[A-Z]{3,}){1,3}$`)
	upperWord      = regexp.MustCompile(`^[A-Z]{3,}(?:\s+[A-Z]{3,}){0,3}$`)
)

var excludedWords = map[string]struct{}{
	"INCOME": {}, "TAX": {}, "DEPARTMENT": {}, "GOVT": {}, "INDIA": {},
	"PERMANENT": {}, "ACCOUNT": {}, "NUMBER": {}, "CARD": {}, "SIGNATURE": {},
	"DATE": {}, "BIRTH": {}, "FATHER": {}, "ADDRESS": {}, "PAN": {},
	"GOVERNMENT": {}, "MINISTRY": {}, "OFFICIAL": {},
}

// labelWords make up lines that carry no value of their own.
var labelWords = map[string]struct{}{
	"NAME": {}, "FATHER": {}, "FATHERS": {}, "S": {}, "FN": {},
	"DATE": {}, "OF": {}, "BIRTH": {}, "SIGNATURE": {},
}

var nameLookalikes = strings.NewReplacer("0", "O", "1", "I", "5", "S", "8", "B", "3", "E")

const (
	minNameLen  = 5
	maxNameLen  = 60
	minWordLen  = 2
	maxWordLen  = 15
	maxVowelRun = 3
	maxConsRun  = 4
)

// CleanName normalizes raw OCR text into a candidate name. Tokens without a
// letter are dropped, look-alike digits become letters, repeated-letter noise
// words are removed and trailing garbage is trimmed.
func CleanName(raw string, allowSingle bool) string {
	var words []string
	for _, tok := range strings.Fields(strings.ToUpper(raw)) {
		if !hasLetter(tok) {
			continue
		}
		w := lettersOnly(nameLookalikes.Replace(tok))
		if w == "" || isRepeatedNoise(w) {
			continue
		}
		words = append(words, w)
	}
	for len(words) > minWords(allowSingle) && !validWords(words, allowSingle) {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func minWords(allowSingle bool) int {
	if allowSingle {
		return 1
	}
	return 2
}

func hasLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			return true
		}
	}
	return false
}

func lettersOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isRepeatedNoise(w string) bool {
	if len(w) < 2 {
		return false
	}
	return strings.Count(w, w[:1]) == len(w)
}

// ValidName reports whether s looks like a printed name. Secondary names may
// be a single word.
func ValidName(s string, allowSingle bool) bool {
	if len(s) < minNameLen || len(s) > maxNameLen {
		return false
	}
	return validWords(strings.Fields(s), allowSingle)
}

func validWords(words []string, allowSingle bool) bool {
	if len(words) < minWords(allowSingle) {
		return false
	}
	n := len(words) - 1
	for _, w := range words {
		n += len(w)
	}
	if n < minNameLen || n > maxNameLen {
		return false
	}
	for _, w := range words {
		if _, bad := excludedWords[w]; bad {
			return false
		}
		if len(w) < minWordLen || len(w) > maxWordLen || lettersOnly(w) != w {
			return false
		}
		if !pronounceable(w) {
			return false
		}
	}
	return true
}

// pronounceable bounds vowel and consonant runs. Y extends both.
func pronounceable(w string) bool {
	vowels, cons := 0, 0
	for i := 0; i < len(w); i++ {
		switch w[i] {
		case 'A', 'E', 'I', 'O', 'U':
			vowels++
			cons = 0
		case 'Y':
			vowels++
			cons++
		default:
			cons++
			vowels = 0
		}
		if vowels > maxVowelRun || cons > maxConsRun {
			return false
		}
	}
	return true
}

func isBareLabel(line string) bool {
	for _, w := range strings.Fields(lettersOnlySpaced(strings.ToUpper(line))) {
		if _, ok := labelWords[w]; !ok {
			return false
		}
	}
	return true
}

// lettersOnlySpaced replaces every non-letter with a space.
func lettersOnlySpaced(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r
		}
		return ' '
	}, s)
}

// secondaryLine returns the index of the first secondary-label line.
func secondaryLine(lines []string) int {
	for i, l := range lines {
		if secondaryLabel.MatchString(l) {
			return i
		}
	}
	return -1
}

func positionHolder(p *pool, ci int) (string, bool) {
	lines := p.lines[ci]
	li := secondaryLine(lines)
	for j := li - 1; j >= 0; j-- {
		if isBareLabel(lines[j]) {
			continue
		}
		v := CleanName(lines[j], false)
		return v, ValidName(v, false)
	}
	return "", false
}

func positionSecondary(p *pool, ci int) (string, bool) {
	lines := p.lines[ci]
	li := secondaryLine(lines)
	if li < 0 {
		return "", false
	}
	line := lines[li]
	locs := secondaryLabel.FindAllStringIndex(line, -1)
	if rest := line[locs[len(locs)-1][1]:]; !isBareLabel(rest) {
		if v := CleanName(rest, true); ValidName(v, true) {
			return v, true
		}
	}
	for j := li + 1; j < len(lines); j++ {
		if isBareLabel(lines[j]) {
			continue
		}
		v := CleanName(lines[j], true)
		return v, ValidName(v, true)
	}
	return "", false
}

// labelHolder reads the value after a standalone NAME label, on the same line
// or the next few lines before another label.
func labelHolder(p *pool, ci int) (string, bool) {
	lines := p.lines[ci]
	for i, line := range lines {
		if parentLabel.MatchString(line) {
			continue
		}
		loc := nameLabel.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if v := CleanName(line[loc[1]:], false); ValidName(v, false) {
			return v, true
		}
		for j := i + 1; j < len(lines) && j <= i+3; j++ {
			if stopLabel.MatchString(lines[j]) {
				break
			}
			if v := CleanName(lines[j], false); ValidName(v, false) {
				return v, true
			}
		}
	}
	return "", false
}

func patternHolder(claimed string) func(p *pool, ci int) (string, bool) {
	return func(p *pool, ci int) (string, bool) {
		for _, line := range p.lines[ci] {
			if !upperWords.MatchString(line) {
				continue
			}
			v := CleanName(line, false)
			if v == claimed || !ValidName(v, false) {
				continue
			}
			return v, true
		}
		return "", false
	}
}

func holderStrategies(claimed string) []strategy {
	return []strategy{
		perCandidate(models.StrategyPosition, positionHolder),
		perCandidate(models.StrategyLabel, labelHolder),
		perCandidate(models.StrategyPattern, patternHolder(claimed)),
	}
}

// labelSecondary reads the value after a parent label that the position rule
// did not recognize, such as a bare FATHER or MOTHER'S NAME.
func labelSecondary(p *pool, ci int) (string, bool) {
	lines := p.lines[ci]
	for i, line := range lines {
		loc := parentLabel.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if rest := line[loc[1]:]; !isBareLabel(rest) {
			if v := CleanName(rest, true); ValidName(v, true) {
				return v, true
			}
		}
		for j := i + 1; j < len(lines) && j <= i+3; j++ {
			if isBareLabel(lines[j]) {
				continue
			}
			if stopLabel.MatchString(lines[j]) {
				break
			}
			if v := CleanName(lines[j], true); ValidName(v, true) {
				return v, true
			}
		}
	}
	return "", false
}

// patternSecondary takes the first uppercase line, one to four words, that is
// not the holder's.
func patternSecondary(holder string) func(p *pool, ci int) (string, bool) {
	return func(p *pool, ci int) (string, bool) {
		if holder == "" {
			return "", false
		}
		for _, line := range p.lines[ci] {
			if !upperWord.MatchString(line) || isBareLabel(line) {
				continue
			}
			v := CleanName(line, true)
			if v == holder || !ValidName(v, true) {
				continue
			}
			return v, true
		}
		return "", false
	}
}

// secondaryStrategies are tried before the holder is known.
func secondaryStrategies() []strategy {
	return []strategy{
		perCandidate(models.StrategyPosition, positionSecondary),
		perCandidate(models.StrategyLabel, labelSecondary),
	}
}

// secondaryFallbacks need the resolved holder to exclude its line.
func secondaryFallbacks(holder string) []strategy {
	return []strategy{
		perCandidate(models.StrategyPattern, patternSecondary(holder)),
	}
}

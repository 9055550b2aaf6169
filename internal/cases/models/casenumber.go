package models

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"sync"
	"time"
)

const (
	caseNumberPrefix = "CR-"
	caseNumberLayout = "20060102"
	minCaseSuffix    = 1000
	maxCaseSuffix    = 9999
)

var caseNumberPattern = regexp.MustCompile(`^CR-(\d{8})-(\d{4})$`)

// NumberSource draws the four-digit suffix of a case number.
type NumberSource interface {
	Suffix() int
}

// RandomNumbers draws suffixes from the process-wide random source.
type RandomNumbers struct{}

func (RandomNumbers) Suffix() int {
	return minCaseSuffix + rand.IntN(maxCaseSuffix-minCaseSuffix+1)
}

// SeededNumbers yields a reproducible suffix sequence. Safe for concurrent use.
type SeededNumbers struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSeededNumbers(seed uint64) *SeededNumbers {
	return &SeededNumbers{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededNumbers) Suffix() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return minCaseSuffix + s.rng.IntN(maxCaseSuffix-minCaseSuffix+1)
}

// FixedNumbers replays the given suffixes in order, then repeats the last one.
type FixedNumbers struct {
	mu       sync.Mutex
	suffixes []int
	next     int
}

func NewFixedNumbers(suffixes ...int) *FixedNumbers {
	return &FixedNumbers{suffixes: suffixes}
}

func (f *FixedNumbers) Suffix() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.suffixes) == 0 {
		return minCaseSuffix
	}
	i := min(f.next, len(f.suffixes)-1)
	f.next++
	return f.suffixes[i]
}

// FormatCaseNumber renders CR-YYYYMMDD-NNNN for the creation date. The date is taken in UTC.
func FormatCaseNumber(created time.Time, suffix int) string {
	return fmt.Sprintf("%s%s-%04d", caseNumberPrefix, created.UTC().Format(caseNumberLayout), suffix)
}

// NextCaseNumber draws a fresh candidate number. Uniqueness is the repository's concern.
func NextCaseNumber(created time.Time, src NumberSource) string {
	if src == nil {
		src = RandomNumbers{}
	}
	return FormatCaseNumber(created, src.Suffix())
}

// CaseNumber is a parsed case number.
type CaseNumber struct {
	Date   time.Time
	Suffix int
}

func (n CaseNumber) String() string {
	return FormatCaseNumber(n.Date, n.Suffix)
}

// ParseCaseNumber validates the format, the calendar date and the suffix range.
func ParseCaseNumber(s string) (CaseNumber, error) {
	m := caseNumberPattern.FindStringSubmatch(s)
	if m == nil {
		return CaseNumber{}, invalid("case number must match CR-YYYYMMDD-NNNN: " + strconv.Quote(s))
	}
	date, err := time.Parse(caseNumberLayout, m[1])
	if err != nil {
		return CaseNumber{}, invalid("case number has an invalid date: " + m[1])
	}
	suffix, _ := strconv.Atoi(m[2])
	if suffix < minCaseSuffix || suffix > maxCaseSuffix {
		return CaseNumber{}, invalid("case number suffix must be within 1000-9999")
	}
	return CaseNumber{Date: date, Suffix: suffix}, nil
}

// ValidCaseNumber reports whether s is a well-formed case number.
func ValidCaseNumber(s string) bool {
	_, err := ParseCaseNumber(s)
	return err == nil
}

// Package parser turns raw benchmark log files into records.
//
// Every parser keeps file order. Lines that do not match the expected
// format become warnings carrying the last timestamp seen in the file
// (0 before the first one), so nothing is silently dropped.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/coffersTech/benchlog/internal/model"
)

// maxLineSize bounds a single log line.
const maxLineSize = 1 << 20

// Parser reads one log file format.
type Parser interface {
	// CanHandle reports whether the file name belongs to this format.
	CanHandle(name string) bool
	// Parse reads the file at path into a new record.
	Parse(path string) (*model.Record, error)
}

// ParseFunc fills r from the contents of a log file.
type ParseFunc func(r *model.Record, in io.Reader) error

// Basic is a parser selected by a file name pattern. The pattern must match
// the whole name and capture the record id in its first group.
type Basic struct {
	Kind    string
	Pattern *regexp.Regexp
	Read    ParseFunc
}

// NewBasic creates a Basic parser; the pattern is anchored at both ends.
func NewBasic(kind, pattern string, read ParseFunc) *Basic {
	return &Basic{
		Kind:    kind,
		Pattern: regexp.MustCompile(`^(?:` + pattern + `)$`),
		Read:    read,
	}
}

// ExtractID returns the record id encoded in a file name.
func (b *Basic) ExtractID(name string) (string, bool) {
	m := b.Pattern.FindStringSubmatch(name)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

func (b *Basic) CanHandle(name string) bool {
	_, ok := b.ExtractID(name)
	return ok
}

func (b *Basic) Parse(path string) (*model.Record, error) {
	id, ok := b.ExtractID(filepath.Base(path))
	if !ok {
		return nil, fmt.Errorf("%s: not a %s log", path, b.Kind)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := model.NewRecord(b.Kind, id, path)
	if err := b.Read(r, f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}

// Find returns the first parser that handles name.
func Find(parsers []Parser, name string) (Parser, bool) {
	for _, p := range parsers {
		if p.CanHandle(name) {
			return p, true
		}
	}
	return nil, false
}

// Defaults returns every built-in parser. Earlier parsers win.
func Defaults() []Parser {
	return []Parser{Client(), Latency(), Resources(), Server(), YCSBRaw()}
}

// scanLines calls fn for every non-empty line with surrounding whitespace
// removed. fn returns false to stop reading.
func scanLines(in io.Reader, fn func(line string) bool) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !fn(line) {
			break
		}
	}
	return sc.Err()
}

// cutField splits off the first whitespace separated field.
func cutField(line string) (string, string) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimLeft(line[i:], " \t")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// microsToSeconds converts a decimal microsecond counter.
func microsToSeconds(s string) (float64, error) {
	us, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(us) / 1e6, nil
}

package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

var sectionOrder = []string{"META", "INPUTS", "RESULT", "SECTIONS", "VALIDATION", "CRYPTO"}

// Canonicalize rejects any receipt bytes that Render would not have produced
// byte for byte, and returns a copy of canonical input.
//
// Receipts MUST be canonical before CID derivation or signature checks.
func Canonicalize(input []byte) ([]byte, error) {
	if !utf8.Valid(input) {
		return nil, errors.New("receipt must be valid UTF-8")
	}
	if bytes.HasPrefix(input, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, errors.New("BOM not allowed")
	}
	if bytes.Contains(input, []byte("\r")) {
		return nil, errors.New("CR line endings not allowed")
	}
	if len(input) == 0 {
		return nil, errors.New("empty receipt")
	}
	if input[len(input)-1] != '\n' {
		return nil, errors.New("missing trailing newline")
	}
	for _, line := range bytes.Split(input, []byte("\n")) {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, errors.New("trailing whitespace forbidden")
		}
	}
	if _, err := parseSections(string(input)); err != nil {
		return nil, err
	}
	return append([]byte(nil), input...), nil
}

type kv struct {
	key   string
	value string
}

// parseSections validates the document layout and returns each section's
// key/value lines in order.
func parseSections(doc string) (map[string][]kv, error) {
	lines := strings.Split(doc, "\n")
	if len(lines) < 3 {
		return nil, errors.New("receipt too short")
	}
	if lines[0] != Preamble {
		return nil, errors.New("missing receipt preamble")
	}
	if lines[len(lines)-2] != Postamble {
		return nil, errors.New("missing receipt postamble")
	}

	out := make(map[string][]kv, len(sectionOrder))
	end := len(lines) - 2
	i := 1
	for _, sec := range sectionOrder {
		if i >= end {
			return nil, fmt.Errorf("missing section %q", sec)
		}
		if lines[i] != sec {
			return nil, fmt.Errorf("sections missing or out of order (expected %q got %q)", sec, lines[i])
		}
		i++
		var body []string
		for i < end && lines[i] != "" {
			body = append(body, lines[i])
			i++
		}
		if i >= end {
			return nil, fmt.Errorf("missing blank line after section %q", sec)
		}
		i++ // blank line

		pairs := make([]kv, 0, len(body))
		for _, l := range body {
			k, v, ok := strings.Cut(l, ": ")
			if !ok || !validKey(k) || strings.TrimSpace(v) != v || v == "" {
				return nil, fmt.Errorf("section %q: malformed line %q", sec, l)
			}
			pairs = append(pairs, kv{key: k, value: v})
		}
		out[sec] = pairs
	}
	if i != end {
		return nil, errors.New("unexpected content after CRYPTO section")
	}
	if err := checkSections(out); err != nil {
		return nil, err
	}
	return out, nil
}

func checkSections(secs map[string][]kv) error {
	for _, sorted := range []string{"META", "CRYPTO"} {
		lines := make([]string, 0, len(secs[sorted]))
		for _, p := range secs[sorted] {
			lines = append(lines, p.key+": "+p.value)
		}
		if !sort.StringsAreSorted(lines) {
			return fmt.Errorf("section %q must be sorted", sorted)
		}
	}
	if v, _ := single(secs["META"], "Spec"); v != SpecID {
		return fmt.Errorf("META: unsupported Spec %q", v)
	}
	if v, _ := single(secs["META"], "Version"); v != "1" {
		return fmt.Errorf("META: unsupported Version %q", v)
	}
	if _, err := single(secs["INPUTS"], "Snapshot-CID"); err != nil {
		return fmt.Errorf("INPUTS: %w", err)
	}
	if _, err := single(secs["RESULT"], "State"); err != nil {
		return fmt.Errorf("RESULT: %w", err)
	}
	if s := secs["SECTIONS"]; len(s) > 0 && s[0].key != "Section" {
		return errors.New("SECTIONS: must start with a Section line")
	}
	if v := secs["VALIDATION"]; len(v) > 0 && v[0].key != "Code" {
		return errors.New("VALIDATION: must start with a Code line")
	}
	return nil
}

func single(pairs []kv, key string) (string, error) {
	var (
		val   string
		found bool
	)
	for _, p := range pairs {
		if p.key != key {
			continue
		}
		if found {
			return "", fmt.Errorf("duplicate %s", key)
		}
		val, found = p.value, true
	}
	if !found {
		return "", fmt.Errorf("missing %s", key)
	}
	return val, nil
}

func validKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			continue
		}
		return false
	}
	return true
}

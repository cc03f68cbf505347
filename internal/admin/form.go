package admin

import (
	"sort"
	"strings"
)

// Form holds the raw text of every field of an edit form, keyed by field
// name. Array fields are kept denormalized (delimiter-joined) while the
// form is open.
type Form map[string]string

func (f Form) Get(name string) string { return f[name] }

// Checked reports whether a checkbox field is set.
func (f Form) Checked(name string) bool {
	switch strings.ToLower(strings.TrimSpace(f[name])) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func (f Form) Clone() Form {
	out := make(Form, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func setChecked(f Form, name string, on bool) {
	if on {
		f[name] = "on"
	} else {
		f[name] = ""
	}
}

// Delimiters for array fields shown as text.
const (
	CommaSep   = ","
	NewlineSep = "\n"
)

// JoinList denormalizes a list for a text input. Comma lists get a space
// after each comma.
func JoinList(items []string, sep string) string {
	if sep == CommaSep {
		return strings.Join(items, ", ")
	}
	return strings.Join(items, sep)
}

// SplitList normalizes text back into a list: split on sep, trim every
// entry, drop the empty ones. SplitList(JoinList(x)) reproduces x up to
// whitespace and empty entries.
func SplitList(text, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(text, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinPairs renders a map as one "key = value" line per entry, sorted by
// key.
func JoinPairs(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + " = " + m[k]
	}
	return strings.Join(lines, "\n")
}

// SplitPairs parses "key = value" lines. Lines without "=" or with an empty
// side are returned as bad.
func SplitPairs(text string) (pairs map[string]string, bad []string) {
	pairs = make(map[string]string)
	for _, line := range SplitList(text, NewlineSep) {
		k, v, ok := strings.Cut(line, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			bad = append(bad, line)
			continue
		}
		pairs[k] = v
	}
	return pairs, bad
}

package isoimage

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// nameEncoder converts a FileTreeNode's original FileName into a namespace-
// compliant candidate, and resolves collisions against already-assigned
// sibling names. One encoder instance is used per namespace (ISO 9660,
// Joliet) during AssignNames.
type nameEncoder struct {
	namespace Namespace
	level     int // ISO 9660 interchange level; ignored for Joliet
	maxChars  int // Joliet only
	strict    bool
	strings   StringTable
	log       Logger

	ucs2 *unicode.Encoder
}

func newISO9660Encoder(level int, strict bool, st StringTable, log Logger) *nameEncoder {
	return &nameEncoder{namespace: NamespaceISO9660, level: level, strict: strict, strings: st, log: log}
}

func newJolietEncoder(maxChars int, strict bool, st StringTable, log Logger) *nameEncoder {
	return &nameEncoder{
		namespace: NamespaceJoliet,
		maxChars:  maxChars,
		strict:    strict,
		strings:   st,
		log:       log,
		ucs2:      unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder(),
	}
}

// candidate produces the namespace-compliant transform of a raw name,
// before any uniqueness suffixing. Directories never carry an extension.
func (e *nameEncoder) candidate(original string, isDir bool) string {
	if e.namespace == NamespaceJoliet {
		return e.jolietCandidate(original)
	}
	return e.iso9660Candidate(original, isDir)
}

func (e *nameEncoder) iso9660Candidate(original string, isDir bool) string {
	if e.level == 1 {
		return sanitizeISO9660Level1(original, isDir)
	}
	return sanitizeISO9660Level23(original, isDir, iso9660Level23MaxLen)
}

func (e *nameEncoder) jolietCandidate(original string) string {
	var b strings.Builder
	for _, r := range original {
		if isJolietForbidden(r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	runes := []rune(b.String())
	if len(runes) > e.maxChars {
		runes = runes[:e.maxChars]
	}
	if len(runes) == 0 {
		return "_"
	}
	return string(runes)
}

func isJolietForbidden(r rune) bool {
	switch r {
	case '*', '/', ':', ';', '?', '\\':
		return true
	}
	return r < 0x20
}

// assignUnique resolves candidate against the names already taken by name,
// implementing the sibling-uniqueness algorithm: on collision, overwrite
// the last 1, then 2, then 3 characters of the candidate's basename (never
// its extension) with a decimal counter starting at 1, rescanning from the
// start of the sibling set after each attempt; give up after the counter
// reaches 255, logging a warning through StringTable/Logger and returning
// the last attempt (callers may still collide; this is a
// degraded-but-forward-progress outcome rather than a hard failure). A
// basename of 3 characters or fewer is too short to usefully suffix and
// skips uniquification entirely.
func (e *nameEncoder) assignUnique(candidate string, taken map[string]bool) string {
	if !taken[candidate] {
		taken[candidate] = true
		return candidate
	}

	base, _ := splitSuffixTarget(candidate)
	if len(base) > 3 {
		for _, suffixLen := range [...]int{1, 2, 3} {
			for counter := 1; counter < exhaustionLimit(suffixLen); counter++ {
				attempt := overwriteSuffix(candidate, suffixLen, counter)
				if !taken[attempt] {
					taken[attempt] = true
					return attempt
				}
			}
		}
	}

	if e.log != nil {
		e.log.Printf("%s: %q", e.strings.Lookup(MsgNameUniquifyExhausted), candidate)
	}
	taken[candidate] = true
	return candidate
}

func exhaustionLimit(suffixLen int) int {
	n := 1
	for i := 0; i < suffixLen; i++ {
		n *= 10
	}
	if n > 255 {
		return 255
	}
	return n
}

// splitSuffixTarget divides name into the portion assignUnique is allowed
// to overwrite (the basename) and the portion it must leave alone (the
// extension, if any) — the sibling-uniqueness algorithm must never touch
// the extension, or "longfilename.txt" would uniquify into garbage like
// "LONGFILE.TX1" instead of "LONGFIL1.TXT".
func splitSuffixTarget(name string) (base, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// overwriteSuffix replaces the last suffixLen characters of name's basename
// with the decimal rendering of counter, zero-padded to suffixLen, leaving
// any extension untouched.
func overwriteSuffix(name string, suffixLen, counter int) string {
	base, ext := splitSuffixTarget(name)
	runes := []rune(base)
	digits := fmt.Sprintf("%0*d", suffixLen, counter)
	if len(runes) < suffixLen {
		runes = []rune(digits)
	} else {
		copy(runes[len(runes)-suffixLen:], []rune(digits))
	}
	if ext == "" {
		return string(runes)
	}
	return string(runes) + "." + ext
}

// sanitizeISO9660Level1 enforces 8.3 naming: directories get up to 8
// d-characters and no extension; files get up to 8 base characters plus up
// to 3 extension characters.
func sanitizeISO9660Level1(original string, isDir bool) string {
	return sanitizeISO9660(original, isDir, iso9660Level1BaseLen, iso9660Level1ExtLen)
}

// sanitizeISO9660Level23 enforces the looser level 2/3 rule: up to maxLen
// d-characters total, including at most one dot.
func sanitizeISO9660Level23(original string, isDir bool, maxLen int) string {
	base, ext := splitExt(original, isDir)
	base = filterDChars(base)
	ext = filterDChars(ext)
	name := base
	if ext != "" {
		name = base + "." + ext
	}
	if len(name) > maxLen {
		name = name[:maxLen]
	}
	name = strings.Trim(name, ".")
	if name == "" {
		name = defaultName(isDir)
	}
	return name
}

func sanitizeISO9660(original string, isDir bool, maxBase, maxExt int) string {
	base, ext := splitExt(original, isDir)
	base = filterDChars(base)
	if len(base) > maxBase {
		base = base[:maxBase]
	}
	if base == "" {
		base = defaultName(isDir)
	}
	if isDir {
		return base
	}
	ext = filterDChars(ext)
	if len(ext) > maxExt {
		ext = ext[:maxExt]
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

func splitExt(original string, isDir bool) (base, ext string) {
	if isDir {
		return original, ""
	}
	idx := strings.LastIndex(original, ".")
	if idx <= 0 || idx == len(original)-1 {
		return original, ""
	}
	return original[:idx], original[idx+1:]
}

func filterDChars(s string) string {
	s = strings.ToUpper(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func defaultName(isDir bool) string {
	if isDir {
		return "DIR"
	}
	return "FILE"
}

// encodeUCS2BE encodes s as UCS-2 big-endian bytes using the
// golang.org/x/text UTF-16 codec (BMP-only input is assumed; characters
// outside the BMP are replaced per the encoder's configured behavior).
func encodeUCS2BE(s string) ([]byte, error) {
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	out, err := enc.String(s)
	if err != nil {
		return nil, fmt.Errorf("encode joliet name %q: %w", s, err)
	}
	return []byte(out), nil
}

// padUTF16BE encodes s as UCS-2BE and pads/truncates to exactly
// numChars*2 bytes, zero-padding unused trailing characters.
func padUTF16BE(s string, numChars int) []byte {
	out := make([]byte, numChars*2)
	encoded, err := encodeUCS2BE(s)
	if err != nil {
		return out
	}
	n := len(encoded)
	if n > len(out) {
		n = len(out)
	}
	copy(out, encoded[:n])
	return out
}

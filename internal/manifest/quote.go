package manifest

import (
	"fmt"
	"strings"
)

// Requote encodes value in the same quoting style as raw, the original token.
// Bare keys stay bare when value permits it.
func Requote(raw, value string) string {
	switch {
	case strings.HasPrefix(raw, `'''`) && !strings.Contains(value, `'''`):
		return `'''` + value + `'''`
	case strings.HasPrefix(raw, `"""`):
		return `"""` + escapeBasic(value) + `"""`
	case strings.HasPrefix(raw, `'`) && !strings.ContainsAny(value, "'\n"):
		return `'` + value + `'`
	case strings.HasPrefix(raw, `'`), strings.HasPrefix(raw, `"`):
		return `"` + escapeBasic(value) + `"`
	case IsBareKey(value):
		return value
	default:
		return `"` + escapeBasic(value) + `"`
	}
}

// IsBareKey reports whether s can be written as an unquoted TOML key.
func IsBareKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func escapeBasic(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

package preflight

import (
	"fmt"
	"strings"

	"github.com/danieljhkim/cargo-rename/internal/rustsrc"
)

const maxNameLength = 64

var reservedNames = map[string]bool{
	"test": true, "doc": true, "build": true, "bench": true,
}

var rustKeywords = map[string]bool{
	"as": true, "async": true, "await": true, "break": true, "const": true,
	"continue": true, "crate": true, "dyn": true, "else": true, "enum": true,
	"extern": true, "false": true, "fn": true, "for": true, "if": true,
	"impl": true, "in": true, "let": true, "loop": true, "match": true,
	"mod": true, "move": true, "mut": true, "pub": true, "ref": true,
	"return": true, "self": true, "Self": true, "static": true, "struct": true,
	"super": true, "trait": true, "true": true, "type": true, "unsafe": true,
	"use": true, "where": true, "while": true, "abstract": true, "become": true,
	"box": true, "do": true, "final": true, "gen": true, "macro": true,
	"override": true, "priv": true, "try": true, "typeof": true, "unsized": true,
	"virtual": true, "yield": true,
}

// ValidateName checks name against cargo's package naming rules.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name %q is longer than %d characters", name, maxNameLength)
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_' || isLetter(c):
		case c == '-' || isDigit(c):
			if i == 0 {
				return fmt.Errorf("name %q must start with a letter or underscore", name)
			}
		default:
			return fmt.Errorf("name %q contains invalid character %q", name, c)
		}
	}

	if strings.HasSuffix(name, "-") {
		return fmt.Errorf("name %q cannot end with '-'", name)
	}
	if reservedNames[name] {
		return fmt.Errorf("name %q is reserved", name)
	}
	if rustKeywords[rustsrc.CrateIdent(name)] {
		return fmt.Errorf("name %q is a Rust keyword", name)
	}
	return nil
}

// NameWarnings returns style problems that cargo accepts but discourages.
func NameWarnings(name string) []string {
	var warnings []string
	if strings.Contains(name, "--") {
		warnings = append(warnings, "name contains consecutive hyphens")
	}
	if strings.Contains(name, "-") && strings.Contains(name, "_") {
		warnings = append(warnings, "name mixes '-' and '_'")
	}
	if strings.ToLower(name) != name {
		warnings = append(warnings, "name contains uppercase characters")
	}
	return warnings
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

package rustsrc

import "strings"

// CrateIdent returns the identifier source code uses for a package name.
func CrateIdent(pkg string) string {
	return strings.ReplaceAll(pkg, "-", "_")
}

// MatchKind classifies how a crate name is used.
type MatchKind int

const (
	// QualifiedPath is a leading path segment such as `krate::item` or `::krate::item`.
	QualifiedPath MatchKind = iota
	// Import is the target of a use declaration.
	Import
	// ExternCrate is the argument of `extern crate krate`.
	ExternCrate
)

func (k MatchKind) String() string {
	switch k {
	case QualifiedPath:
		return "path"
	case Import:
		return "use"
	case ExternCrate:
		return "extern crate"
	default:
		return "unknown"
	}
}

// Match is one reference to a crate. Offset and Length cover the identifier
// only, never an r# prefix.
type Match struct {
	Kind   MatchKind
	Offset int
	Length int
	Raw    bool
}

// Keywords that may legally sit before a leading `::` path, as in `use ::krate`
// or `impl ::krate::Trait`. Any other identifier there means the segment
// continues a longer path and is not a crate root.
var leadingKeywords = map[string]bool{
	"as": true, "async": true, "break": true, "const": true, "dyn": true,
	"else": true, "for": true, "if": true, "impl": true, "in": true,
	"let": true, "loop": true, "match": true, "move": true, "mut": true,
	"pub": true, "ref": true, "return": true, "static": true, "type": true,
	"unsafe": true, "use": true, "where": true, "while": true, "yield": true,
}

// FindCrateRefs returns every place where crate, a snake_case crate name, is
// used as a crate root.
func FindCrateRefs(tokens []Token, crate string) []Match {
	var matches []Match
	inUse := false
	// One entry per open `{` of the current use declaration, true when the
	// group sits at the crate root as in `use {krate::x, std::io}`.
	var groups []bool

	at := func(i int) *Token {
		if i < 0 || i >= len(tokens) {
			return nil
		}
		return &tokens[i]
	}

	for i := range tokens {
		tok := &tokens[i]

		if tok.Kind == Punct {
			switch tok.Text {
			case "{":
				if inUse {
					groups = append(groups, opensRootGroup(at(i-2), at(i-1), groups))
				}
			case "}":
				if inUse {
					if len(groups) == 0 {
						inUse = false
					} else {
						groups = groups[:len(groups)-1]
					}
				}
			case ";":
				inUse, groups = false, nil
			}
			continue
		}
		if tok.Kind != Ident {
			continue
		}

		if tok.Text == "use" && !tok.Raw && !isPunct(at(i-1), ".") {
			inUse, groups = true, nil
			continue
		}
		if tok.Text != crate {
			continue
		}

		prev, next := at(i-1), at(i+1)

		if inUse && len(groups) > 0 {
			// Segments inside `use a::{...}` groups belong to a's path
			if !groups[len(groups)-1] || !(isPunct(prev, "{") || isPunct(prev, ",")) {
				continue
			}
			if !endsGroupRoot(next, at(i+2)) {
				continue
			}
			matches = append(matches, Match{
				Kind:   Import,
				Offset: tok.Start,
				Length: tok.End - tok.Start,
				Raw:    tok.Raw,
			})
			continue
		}

		kind, ok := classify(at(i-2), prev, next, at(i+2), inUse)
		if !ok {
			continue
		}
		matches = append(matches, Match{
			Kind:   kind,
			Offset: tok.Start,
			Length: tok.End - tok.Start,
			Raw:    tok.Raw,
		})
	}

	return matches
}

// opensRootGroup reports whether a `{` preceded by prev2 prev starts a use
// group whose items are crate roots: `use {`, `use ::{`, or a group nested
// directly in another root group.
func opensRootGroup(prev2, prev *Token, groups []bool) bool {
	switch {
	case isIdent(prev, "use"):
		return true
	case isPunct(prev, "::") && isIdent(prev2, "use"):
		return true
	case len(groups) > 0 && groups[len(groups)-1]:
		return isPunct(prev, "{") || isPunct(prev, ",")
	}
	return false
}

// endsGroupRoot reports whether the tokens after a root group item make it a
// crate reference: `krate::x`, `krate as k`, or a bare `krate` in the list.
func endsGroupRoot(next, next2 *Token) bool {
	switch {
	case isPunct(next, "::"):
		return !isPunct(next2, "<")
	case isPunct(next, ","), isPunct(next, "}"):
		return true
	case isIdent(next, "as"):
		return true
	}
	return false
}

func classify(prev2, prev, next, next2 *Token, inUse bool) (MatchKind, bool) {
	if isIdent(prev, "crate") && isIdent(prev2, "extern") {
		return ExternCrate, true
	}

	if isPunct(next, "::") {
		// krate::<T> is a generic function call, .krate:: a method turbofish
		if isPunct(next2, "<") || isPunct(prev, ".") || isPunct(prev, "$") {
			return 0, false
		}
		if isPunct(prev, "::") && continuesPath(prev2) {
			return 0, false
		}
		if inUse {
			return Import, true
		}
		return QualifiedPath, true
	}

	// use krate; / use krate as k; / use ::krate;
	if inUse && (isIdent(prev, "use") || (isPunct(prev, "::") && isIdent(prev2, "use"))) {
		if isPunct(next, ";") || isIdent(next, "as") || isPunct(next, ",") {
			return Import, true
		}
	}

	return 0, false
}

// continuesPath reports whether tok, the token before a `::`, makes that
// `::` a separator inside a longer path.
func continuesPath(tok *Token) bool {
	if tok == nil {
		return false
	}
	switch tok.Kind {
	case Ident:
		return tok.Raw || !leadingKeywords[tok.Text]
	case Punct:
		return tok.Text == ">"
	}
	return false
}

func isPunct(tok *Token, text string) bool {
	return tok != nil && tok.Kind == Punct && tok.Text == text
}

func isIdent(tok *Token, text string) bool {
	return tok != nil && tok.Kind == Ident && !tok.Raw && tok.Text == text
}

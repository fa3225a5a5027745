package scan

import (
	"bytes"
	"strings"
)

// Kind classifies a reference.
type Kind int

const (
	// PackageName is the [package] name value of the renamed package.
	PackageName Kind = iota
	// DependencyKey is the key of a dependency entry without a package field.
	DependencyKey
	// DependencyPackage is the package value of an aliased dependency entry.
	DependencyPackage
	// PathDependency is a path value whose target changes with the move.
	PathDependency
	// SourceQualifiedPath is a crate-rooted path in Rust source.
	SourceQualifiedPath
	// SourceImport is a use declaration in Rust source.
	SourceImport
	// SourceExternCrate is an extern crate declaration in Rust source.
	SourceExternCrate
	// WorkspaceMember is a member list entry naming the package directory.
	WorkspaceMember
	// WorkspaceMemberGlob marks a package reached only through a member glob.
	WorkspaceMemberGlob
)

func (k Kind) String() string {
	switch k {
	case PackageName:
		return "package-name"
	case DependencyKey:
		return "dependency-key"
	case DependencyPackage:
		return "dependency-package"
	case PathDependency:
		return "path-dependency"
	case SourceQualifiedPath:
		return "source-path"
	case SourceImport:
		return "source-use"
	case SourceExternCrate:
		return "source-extern-crate"
	case WorkspaceMember:
		return "workspace-member"
	case WorkspaceMemberGlob:
		return "workspace-member-glob"
	default:
		return "unknown"
	}
}

// Reference is one located occurrence of the old package identity.
type Reference struct {
	// Kind is the reference kind
	Kind Kind

	// Path is the absolute path of the file
	Path string

	// Offset is the byte offset of the span
	Offset int

	// Length is the byte length of the span
	Length int

	// Text is the original span text, quotes included for TOML strings
	Text string

	// Line is the 1-based line of the span
	Line int

	// Context is the trimmed source line holding the span
	Context string

	// Value is the decoded TOML string for path, member and name references
	Value string

	// ManifestDir is the directory of the manifest holding a path dependency
	ManifestDir string

	// List names the member list for member references ("members", "default-members")
	List string

	// Globs are the members patterns, recorded on WorkspaceMemberGlob references
	Globs []string
}

// End returns the offset just past the span.
func (r Reference) End() int {
	return r.Offset + r.Length
}

// ReferenceSet is the immutable result of a scan.
type ReferenceSet struct {
	// Refs are the references in scan order
	Refs []Reference

	// Digests maps every scanned file to its content digest
	Digests map[string]string
}

// Count returns the number of references of the given kinds.
func (s *ReferenceSet) Count(kinds ...Kind) int {
	n := 0
	for _, ref := range s.Refs {
		for _, k := range kinds {
			if ref.Kind == k {
				n++
				break
			}
		}
	}
	return n
}

// Files returns the distinct files holding references, in scan order.
func (s *ReferenceSet) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, ref := range s.Refs {
		if !seen[ref.Path] {
			seen[ref.Path] = true
			files = append(files, ref.Path)
		}
	}
	return files
}

// locate returns the 1-based line number and trimmed text of the line
// holding offset.
func locate(data []byte, offset int) (int, string) {
	line := 1 + bytes.Count(data[:offset], []byte("\n"))
	start := bytes.LastIndexByte(data[:offset], '\n') + 1
	end := bytes.IndexByte(data[offset:], '\n')
	if end < 0 {
		end = len(data)
	} else {
		end += offset
	}
	return line, strings.TrimSpace(string(data[start:end]))
}

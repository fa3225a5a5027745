// Package manifest locates the parts of a Cargo.toml that a rename edits.
//
// It walks the token stream of go-toml's unstable parser instead of decoding
// into maps, so every value it reports carries the byte span of its raw text
// (quotes included). Edits replace exactly those spans and leave comments,
// whitespace and key order untouched.
//
// Key responsibilities:
//   - Find the [package] name value
//   - Find every dependency entry in normal, dev, build, target-specific,
//     workspace and patch tables, in inline, dotted and [table.key] forms
//   - Find the items of workspace.members, default-members and exclude
package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2/unstable"
)

// Span is a byte range in a manifest.
type Span struct {
	Offset int
	Length int
}

// End returns the offset just past the span.
func (s Span) End() int {
	return s.Offset + s.Length
}

// Dependency is one entry of a dependency table.
type Dependency struct {
	// Table is the path of the table holding the entry, e.g. ["target", "cfg(unix)", "dependencies"]
	Table []string

	// Key is the dependency key, which is the alias when Package is set
	Key string

	// KeySpans are the raw spans of every occurrence of the key
	KeySpans []Span

	// Package is the value of the package field, empty when absent
	Package string

	// PackageSpan is the raw span of the package value
	PackageSpan Span

	// Path is the value of the path field, empty when absent
	Path string

	// PathSpan is the raw span of the path value
	PathSpan Span

	// Version is the version requirement, if any
	Version string

	// Workspace is true for `key.workspace = true` inheritance
	Workspace bool
}

// Name returns the package the entry refers to.
func (d *Dependency) Name() string {
	if d.Package != "" {
		return d.Package
	}
	return d.Key
}

// Aliased reports whether the key differs from the referenced package.
func (d *Dependency) Aliased() bool {
	return d.Package != ""
}

// Section returns the dotted table name, for display.
func (d *Dependency) Section() string {
	return strings.Join(d.Table, ".")
}

// Item is one string element of an array.
type Item struct {
	Value string
	Span  Span
}

// Document is the located view of one manifest.
type Document struct {
	// Path is the manifest file path
	Path string

	// Data is the raw manifest content the spans refer to
	Data []byte

	// HasPackage is true when a [package] table is present
	HasPackage bool

	// PackageName is the [package] name value
	PackageName string

	// PackageNameSpan is the raw span of the name value
	PackageNameSpan Span

	// IsWorkspace is true when a [workspace] table is present
	IsWorkspace bool

	// Members are the workspace.members items
	Members []Item

	// DefaultMembers are the workspace.default-members items
	DefaultMembers []Item

	// Exclude are the workspace.exclude items
	Exclude []Item

	// Dependencies are all dependency entries in document order
	Dependencies []*Dependency
}

// Text returns the raw text of a span.
func (d *Document) Text(s Span) string {
	return string(d.Data[s.Offset:s.End()])
}

// ParseError reports a malformed manifest.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type keyPart struct {
	name string
	span Span
}

type parser struct {
	p      unstable.Parser
	doc    *Document
	byKey  map[string]*Dependency
	header []keyPart
	array  bool
}

// Parse locates the editable parts of a manifest.
func Parse(path string, data []byte) (*Document, error) {
	ps := &parser{
		doc:   &Document{Path: path, Data: data},
		byKey: make(map[string]*Dependency),
	}
	ps.p.Reset(data)

	for ps.p.NextExpression() {
		expr := ps.p.Expression()
		var err error
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			err = ps.table(expr)
		case unstable.KeyValue:
			err = ps.keyValue(expr)
		}
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	}

	if err := ps.p.Error(); err != nil {
		perr := &ParseError{Path: path, Err: err}
		var tomlErr *unstable.ParserError
		if errors.As(err, &tomlErr) && len(tomlErr.Highlight) > 0 {
			perr.Line = ps.p.Shape(ps.p.Range(tomlErr.Highlight)).Start.Line
		}
		return nil, perr
	}

	return ps.doc, nil
}

func (ps *parser) table(expr *unstable.Node) error {
	parts, err := ps.key(expr.Key())
	if err != nil {
		return err
	}
	ps.header = parts
	ps.array = expr.Kind == unstable.ArrayTable
	if ps.array {
		return nil
	}

	switch parts[0].name {
	case "package":
		ps.doc.HasPackage = true
	case "workspace":
		ps.doc.IsWorkspace = true
	}

	// [dependencies.foo] declares an entry even without fields below it
	if n := dependencyTableLen(parts); n >= 0 && len(parts) == n+1 {
		ps.entry(parts[:n], parts[n])
	}
	return nil
}

func (ps *parser) keyValue(expr *unstable.Node) error {
	// Keys inside [[bin]] and friends never name dependencies
	if ps.array {
		return nil
	}

	parts, err := ps.key(expr.Key())
	if err != nil {
		return err
	}

	full := make([]keyPart, 0, len(ps.header)+len(parts))
	full = append(full, ps.header...)
	full = append(full, parts...)

	if full[0].name == "workspace" {
		ps.doc.IsWorkspace = true
	}
	return ps.value(full, expr.Value())
}

func (ps *parser) value(path []keyPart, node *unstable.Node) error {
	if n := dependencyTableLen(path); n >= 0 && len(path) > n {
		dep := ps.entry(path[:n], path[n])
		fields := path[n+1:]

		if node.Kind == unstable.InlineTable {
			return ps.inline(path, node)
		}
		switch len(fields) {
		case 0:
			if node.Kind == unstable.String {
				dep.Version = string(node.Data)
			}
		case 1:
			ps.field(dep, fields[0].name, node)
		}
		return nil
	}

	if node.Kind == unstable.InlineTable {
		return ps.inline(path, node)
	}

	switch names(path) {
	case "package.name":
		if node.Kind == unstable.String {
			ps.doc.HasPackage = true
			ps.doc.PackageName = string(node.Data)
			ps.doc.PackageNameSpan = span(node.Raw)
		}
	case "workspace.members":
		ps.doc.Members = ps.items(node)
	case "workspace.default-members":
		ps.doc.DefaultMembers = ps.items(node)
	case "workspace.exclude":
		ps.doc.Exclude = ps.items(node)
	}
	return nil
}

func (ps *parser) inline(path []keyPart, node *unstable.Node) error {
	it := node.Children()
	for it.Next() {
		kv := it.Node()
		parts, err := ps.key(kv.Key())
		if err != nil {
			return err
		}
		child := make([]keyPart, 0, len(path)+len(parts))
		child = append(child, path...)
		child = append(child, parts...)
		if err := ps.value(child, kv.Value()); err != nil {
			return err
		}
	}
	return nil
}

func (ps *parser) field(dep *Dependency, name string, node *unstable.Node) {
	switch name {
	case "package":
		if node.Kind == unstable.String {
			dep.Package = string(node.Data)
			dep.PackageSpan = span(node.Raw)
		}
	case "path":
		if node.Kind == unstable.String {
			dep.Path = string(node.Data)
			dep.PathSpan = span(node.Raw)
		}
	case "version":
		if node.Kind == unstable.String {
			dep.Version = string(node.Data)
		}
	case "workspace":
		if node.Kind == unstable.Bool {
			dep.Workspace = string(node.Data) == "true"
		}
	}
}

func (ps *parser) items(node *unstable.Node) []Item {
	if node.Kind != unstable.Array {
		return nil
	}
	var items []Item
	it := node.Children()
	for it.Next() {
		child := it.Node()
		if child.Kind != unstable.String {
			continue
		}
		items = append(items, Item{Value: string(child.Data), Span: span(child.Raw)})
	}
	return items
}

// entry returns the dependency for table+key, creating it on first sight and
// recording the key's span.
func (ps *parser) entry(table []keyPart, key keyPart) *Dependency {
	tableNames := make([]string, len(table))
	for i, part := range table {
		tableNames[i] = part.name
	}
	id := strings.Join(tableNames, "\x00") + "\x00" + key.name

	dep, ok := ps.byKey[id]
	if !ok {
		dep = &Dependency{Table: tableNames, Key: key.name}
		ps.byKey[id] = dep
		ps.doc.Dependencies = append(ps.doc.Dependencies, dep)
	}
	for _, s := range dep.KeySpans {
		if s == key.span {
			return dep
		}
	}
	dep.KeySpans = append(dep.KeySpans, key.span)
	return dep
}

func (ps *parser) key(it unstable.Iterator) ([]keyPart, error) {
	var parts []keyPart
	for it.Next() {
		node := it.Node()
		s := span(node.Raw)
		if s.Length == 0 || s.End() > len(ps.doc.Data) {
			return nil, fmt.Errorf("cannot locate key %q", node.Data)
		}
		parts = append(parts, keyPart{name: string(node.Data), span: s})
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty key")
	}
	return parts, nil
}

// dependencyTableLen returns how many leading key parts name a dependency
// table, or -1 when the path is not inside one.
func dependencyTableLen(path []keyPart) int {
	if len(path) == 0 {
		return -1
	}
	switch path[0].name {
	case "dependencies", "dev-dependencies", "dev_dependencies", "build-dependencies", "build_dependencies":
		return 1
	case "target":
		if len(path) >= 3 && isDependencyTable(path[2].name) {
			return 3
		}
	case "workspace":
		if len(path) >= 2 && path[1].name == "dependencies" {
			return 2
		}
	case "patch":
		if len(path) >= 2 {
			return 2
		}
	}
	return -1
}

func isDependencyTable(name string) bool {
	switch name {
	case "dependencies", "dev-dependencies", "dev_dependencies", "build-dependencies", "build_dependencies":
		return true
	}
	return false
}

func names(path []keyPart) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = p.name
	}
	return strings.Join(parts, ".")
}

func span(r unstable.Range) Span {
	return Span{Offset: int(r.Offset), Length: int(r.Length)}
}

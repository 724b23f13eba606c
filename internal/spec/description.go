// Package spec loads statement description files: YAML (or JSON)
// documents that describe one statement each, with predicates in the
// key-encoded form
//
//	kind: select
//	table: users
//	where:
//	  - {"age >=": 18, "status =": active}
//	  - {"role in": [admin, owner]}
//	order_by: ["-created_at"]
//	limit: 10
//
// A where/having value may be a single mapping (one AND group) or a list
// of mappings (groups joined with OR). Mapping order is preserved and
// fixes column and parameter order.
package spec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chameleon-db/dsql/pkg/builder"
)

// Description is one statement description document.
type Description struct {
	Name    string    `yaml:"name"`
	Dialect string    `yaml:"dialect"`
	Kind    string    `yaml:"kind"`
	Table   string    `yaml:"table"`
	Fields  []string  `yaml:"fields"`
	Where   Groups    `yaml:"where"`
	GroupBy []string  `yaml:"group_by"`
	Having  Groups    `yaml:"having"`
	OrderBy []string  `yaml:"order_by"`
	Limit   int       `yaml:"limit"`
	Offset  int       `yaml:"offset"`
	Records []Mapping `yaml:"records"`
	Patch   Mapping   `yaml:"patch"`
	SQL     string    `yaml:"sql"`
	Params  []any     `yaml:"params"`

	// Source is "file:line" of the document.
	Source string `yaml:"-"`
}

// Mapping is a YAML mapping decoded in document order.
type Mapping []builder.Pair

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Mapping) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	out := make(Mapping, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
		}
		var v any
		if err := val.Decode(&v); err != nil {
			return err
		}
		out = append(out, builder.Pair{Field: key.Value, Value: v})
	}
	*m = out
	return nil
}

// Groups is a where/having value: a list of AND groups joined with OR.
type Groups []Mapping

// UnmarshalYAML accepts a single mapping or a sequence of mappings.
func (g *Groups) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		var m Mapping
		if err := n.Decode(&m); err != nil {
			return err
		}
		*g = Groups{m}
		return nil
	case yaml.SequenceNode:
		var ms []Mapping
		if err := n.Decode(&ms); err != nil {
			return err
		}
		*g = ms
		return nil
	}
	return fmt.Errorf("line %d: where/having must be a mapping or a list of mappings", n.Line)
}

// conditions converts key-encoded groups into builder conditions.
func (g Groups) conditions() (builder.Conditions, error) {
	if len(g) == 0 {
		return nil, nil
	}
	out := make(builder.Conditions, len(g))
	for i, m := range g {
		group := make(builder.Group, len(m))
		for j, p := range m {
			pred, err := builder.ParsePredicate(p.Field, p.Value)
			if err != nil {
				return nil, err
			}
			group[j] = pred
		}
		out[i] = group
	}
	return out, nil
}

// Query converts the description into builder input.
func (d *Description) Query() (builder.Query, error) {
	kind, err := builder.ParseKind(d.Kind)
	if err != nil {
		return builder.Query{}, err
	}
	where, err := d.Where.conditions()
	if err != nil {
		return builder.Query{}, err
	}
	having, err := d.Having.conditions()
	if err != nil {
		return builder.Query{}, err
	}

	q := builder.Query{
		Kind:    kind,
		Table:   d.Table,
		Fields:  d.Fields,
		Where:   where,
		GroupBy: d.GroupBy,
		Having:  having,
		OrderBy: d.OrderBy,
		Limit:   d.Limit,
		Offset:  d.Offset,
		Patch:   builder.Record(d.Patch),
		Text:    d.SQL,
		Params:  d.Params,
	}
	for _, r := range d.Records {
		q.Records = append(q.Records, builder.Record(r))
	}
	return q, nil
}

// Build renders the description. The document's own dialect, when set,
// takes precedence over def.
func (d *Description) Build(def builder.Dialect) (*builder.Statement, error) {
	dialect := def
	if d.Dialect != "" {
		var err error
		if dialect, err = builder.ParseDialect(d.Dialect); err != nil {
			return nil, d.wrap(err)
		}
	}
	q, err := d.Query()
	if err != nil {
		return nil, d.wrap(err)
	}
	stmt, err := builder.Build(dialect, q)
	if err != nil {
		return nil, d.wrap(err)
	}
	return stmt, nil
}

// Title names the description in output.
func (d *Description) Title() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Source
}

func (d *Description) wrap(err error) error {
	if d.Source == "" {
		return err
	}
	return fmt.Errorf("%s: %w", d.Source, err)
}

// ============================================================
// LOADING
// ============================================================

// Parse reads every document of r. source names r in errors.
func Parse(r io.Reader, source string) ([]*Description, error) {
	dec := yaml.NewDecoder(r)
	var out []*Description
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		if len(doc.Content) == 0 {
			continue
		}

		d := &Description{}
		if err := doc.Decode(d); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, doc.Line, err)
		}
		d.Source = fmt.Sprintf("%s:%d", source, doc.Content[0].Line)
		out = append(out, d)
	}
}

// LoadFile parses one description file.
func LoadFile(path string) ([]*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// IsDescriptionFile reports whether path has a description file extension.
func IsDescriptionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}

// Files expands paths (files or directories, walked recursively) into the
// description files they contain, in lexical order per directory.
func Files(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, de os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !de.IsDir() && IsDescriptionFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Package loader reads decoded class documents (YAML or JSON) into the IR
// consumed by the restructuring pipeline.
package loader

import (
	"gopkg.in/yaml.v3"
)

// classDoc is the on-disk form of one class
type classDoc struct {
	Class      string      `yaml:"class"`
	Super      string      `yaml:"super"`
	Interfaces []string    `yaml:"interfaces"`
	Modifiers  []string    `yaml:"modifiers"`
	Methods    []methodDoc `yaml:"methods"`
}

type methodDoc struct {
	Name      string     `yaml:"name"`
	Modifiers []string   `yaml:"modifiers"`
	Returns   string     `yaml:"returns"`
	This      bool       `yaml:"this"`
	Params    []varDoc   `yaml:"params"`
	Locals    []varDoc   `yaml:"locals"`
	Blocks    []blockDoc `yaml:"blocks"`
	Try       []rangeDoc `yaml:"try"`
}

type varDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type rangeDoc struct {
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Handler string `yaml:"handler"`
	Catch   string `yaml:"catch"`
}

// blockDoc holds at most one terminator. A block without one continues at
// Goto, or at the next block when Goto is empty.
type blockDoc struct {
	Label   string    `yaml:"label"`
	Do      []stmtDoc `yaml:"do"`
	Goto    string    `yaml:"goto"`
	If      *exprDoc  `yaml:"if"`
	Then    string    `yaml:"then"`
	Else    string    `yaml:"else"`
	Switch  *exprDoc  `yaml:"switch"`
	Cases   []caseDoc `yaml:"cases"`
	Default string    `yaml:"default"`
	Return  yaml.Node `yaml:"return"`
	Throw   *exprDoc  `yaml:"throw"`
}

type caseDoc struct {
	Value  int64  `yaml:"value"`
	Target string `yaml:"target"`
}

// stmtDoc is one statement; exactly one of Set, Eval, Store or ArrayStore
// selects its kind
type stmtDoc struct {
	Set        string   `yaml:"set"`
	Eval       *exprDoc `yaml:"eval"`
	Store      string   `yaml:"store"`
	ArrayStore *exprDoc `yaml:"array_store"`
	Object     *exprDoc `yaml:"object"`
	Owner      string   `yaml:"owner"`
	Index      *exprDoc `yaml:"index"`
	Value      *exprDoc `yaml:"value"`
	line       int
}

// UnmarshalYAML records the statement position for error messages
func (s *stmtDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain stmtDoc
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = stmtDoc(p)
	s.line = node.Line
	return nil
}

// exprDoc defers expression decoding until every variable of the method
// is known, since a scalar names a variable or a literal depending on scope
type exprDoc struct {
	node *yaml.Node
}

// UnmarshalYAML keeps the raw node
func (e *exprDoc) UnmarshalYAML(node *yaml.Node) error {
	e.node = node
	return nil
}

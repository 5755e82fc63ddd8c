package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// PlainImport is a bare `import name [as alias]`.
type PlainImport struct {
	Name  string
	Alias string
}

// FromImport is a `from module import names...` (module may be empty
// for a pure relative import, e.g. `from . import helpers`).
type FromImport struct {
	Module string
	Names  []string
	Level  int
}

// CallSite is one call expression. Qualified calls are a direct
// attribute access on a bare identifier (`mod.fn()`); everything else
// is "free" and only its printable rendering is kept.
type CallSite struct {
	Expression  string
	IsQualified bool
	Qualifier   string
}

// FileRecord is the per-file symbolic record produced by the Source
// Analyzer (SPEC_FULL.md §3/§4.B), independent of the richer Symbol
// model used for CodeStructureAnalysis.
type FileRecord struct {
	FilePath         string
	Imports          []PlainImport
	FromImports      []FromImport
	DefinedFunctions []string
	Calls            []CallSite
}

// ExtractFileRecord parses Python source and produces its FileRecord.
// Non-Python languages return an empty record with no error; callers
// should treat a parse failure as a non-fatal ParseError per §7.
func ExtractFileRecord(lang Language, source []byte, filePath string) (*FileRecord, error) {
	rec := &FileRecord{FilePath: filePath}
	if lang != LanguagePython {
		return rec, nil
	}

	p, err := NewParser(lang)
	if err != nil {
		return nil, err
	}
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	cursor := sitter.NewTreeCursor(tree.RootNode())
	defer cursor.Close()

	walkRecord(cursor, source, rec)
	return rec, nil
}

func walkRecord(cursor *sitter.TreeCursor, source []byte, rec *FileRecord) {
	node := cursor.CurrentNode()

	switch node.Type() {
	case "import_statement":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "dotted_name":
				name := nodeContent(child, source)
				rec.Imports = append(rec.Imports, PlainImport{Name: name, Alias: name})
			case "aliased_import":
				nameNode := findChild(child, "dotted_name")
				aliasNode := findChild(child, "identifier")
				if nameNode != nil {
					name := nodeContent(nameNode, source)
					alias := name
					if aliasNode != nil {
						alias = nodeContent(aliasNode, source)
					}
					rec.Imports = append(rec.Imports, PlainImport{Name: name, Alias: alias})
				}
			}
		}

	case "import_from_statement":
		rec.FromImports = append(rec.FromImports, extractFromImport(node, source))

	case "function_definition":
		if nameNode := findChild(node, "identifier"); nameNode != nil {
			rec.DefinedFunctions = append(rec.DefinedFunctions, nodeContent(nameNode, source))
		}

	case "call":
		rec.Calls = append(rec.Calls, extractCallSite(node, source))
	}

	if cursor.GoToFirstChild() {
		walkRecord(cursor, source, rec)
		for cursor.GoToNextSibling() {
			walkRecord(cursor, source, rec)
		}
		cursor.GoToParent()
	}
}

// extractFromImport handles both `from pkg.sub import a, b` and
// `from . import x` / `from .. import x` / `from .sub import x`.
func extractFromImport(node *sitter.Node, source []byte) FromImport {
	fi := FromImport{}

	moduleNode := findChild(node, "dotted_name")
	relNode := findChild(node, "relative_import")

	switch {
	case relNode != nil:
		for i := 0; i < int(relNode.ChildCount()); i++ {
			child := relNode.Child(i)
			switch child.Type() {
			case "import_prefix":
				fi.Level = strings.Count(nodeContent(child, source), ".")
			case "dotted_name":
				fi.Module = nodeContent(child, source)
			}
		}
	case moduleNode != nil:
		fi.Module = nodeContent(moduleNode, source)
		fi.Level = 0
	}

	fi.Names = extractImportedNames(node, source)
	return fi
}

func extractImportedNames(node *sitter.Node, source []byte) []string {
	var names []string
	seenModuleOrPrefix := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name", "relative_import":
			if !seenModuleOrPrefix {
				seenModuleOrPrefix = true
				continue
			}
			names = append(names, nodeContent(child, source))
		case "aliased_import":
			if nameNode := findChild(child, "dotted_name"); nameNode != nil {
				names = append(names, nodeContent(nameNode, source))
			}
		case "wildcard_import":
			names = append(names, "*")
		}
	}
	return names
}

// extractCallSite mirrors relationships.go's extractCallTarget but
// produces the spec's tagged Qualified/Free shape.
func extractCallSite(node *sitter.Node, source []byte) CallSite {
	if node.ChildCount() == 0 {
		return CallSite{}
	}
	funcNode := node.Child(0)

	switch funcNode.Type() {
	case "attribute":
		obj := funcNode.Child(0)
		attr := findChild(funcNode, "identifier")
		if obj != nil && obj.Type() == "identifier" && attr != nil {
			qualifier := nodeContent(obj, source)
			return CallSite{
				Expression:  nodeContent(funcNode, source),
				IsQualified: true,
				Qualifier:   qualifier,
			}
		}
		return CallSite{Expression: nodeContent(funcNode, source)}
	case "identifier":
		return CallSite{Expression: nodeContent(funcNode, source)}
	default:
		return CallSite{Expression: nodeContent(funcNode, source)}
	}
}

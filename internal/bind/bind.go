// Package bind implements the Reference Binder (SPEC_FULL.md §4.C):
// it consumes the per-file records produced by the Source Analyzer,
// resolves each reference via the Path Resolver, and produces the
// incoming-reference lists plus the interned-id DependencyGraph.
package bind

import (
	"github.com/randalmurphy/code-index/internal/parser"
	"github.com/randalmurphy/code-index/internal/resolve"
)

// ReferenceKind mirrors SPEC_FULL.md's {import, call} kind set.
type ReferenceKind string

const (
	KindImport ReferenceKind = "import"
	KindCall   ReferenceKind = "call"
)

// Reference is one incoming-reference entry stored on a target file.
type Reference struct {
	SourceModule string
	Kind         ReferenceKind
}

// FileModel is a SourceFile: the record produced by B, augmented with
// the module name and the incoming references produced by binding.
type FileModel struct {
	Path       string
	Module     string
	Record     *parser.FileRecord
	Incoming   []Reference
	incomingSet map[Reference]bool
}

// Project is the aggregate ingestion result: one FileModel per
// source file, keyed by absolute path, plus a module name → paths
// index (a module may map to several files).
type Project struct {
	Root        string
	Files       map[string]*FileModel
	ByModule    map[string][]string
}

// NewProject creates an empty Project rooted at root.
func NewProject(root string) *Project {
	return &Project{
		Root:     root,
		Files:    make(map[string]*FileModel),
		ByModule: make(map[string][]string),
	}
}

// AddFile registers a parsed file's record under its module name.
func (p *Project) AddFile(path, module string, rec *parser.FileRecord) *FileModel {
	fm := &FileModel{
		Path:        path,
		Module:      module,
		Record:      rec,
		incomingSet: make(map[Reference]bool),
	}
	p.Files[path] = fm
	p.ByModule[module] = append(p.ByModule[module], path)
	return fm
}

func (f *FileModel) addIncoming(ref Reference) {
	if f.incomingSet[ref] {
		return
	}
	f.incomingSet[ref] = true
	f.Incoming = append(f.Incoming, ref)
}

// Bind runs the binder over every file in the project, populating
// incoming references, and returns the resulting DependencyGraph.
func Bind(p *Project) *DependencyGraph {
	graph := NewDependencyGraph()

	for path, fm := range p.Files {
		for _, imp := range fm.Record.Imports {
			bindPlainImport(p, graph, fm, path, imp)
		}
		for _, fi := range fm.Record.FromImports {
			bindFromImport(p, graph, fm, path, fi)
		}
		for _, call := range fm.Record.Calls {
			bindQualifiedCall(p, graph, fm, call)
		}
	}

	return graph
}

func bindPlainImport(p *Project, graph *DependencyGraph, fm *FileModel, path string, imp parser.PlainImport) {
	res := resolve.Resolve(resolve.Ref{ModuleName: imp.Name, Level: 0, FromFile: path})
	bindResolved(p, graph, fm, res, imp.Name, KindImport)
}

func bindFromImport(p *Project, graph *DependencyGraph, fm *FileModel, path string, fi parser.FromImport) {
	if fi.Module == "" && fi.Level > 0 {
		bound := false
		for _, name := range fi.Names {
			res := resolve.Resolve(resolve.Ref{ModuleName: name, Level: fi.Level, FromFile: path})
			if _, ok := p.Files[res.AbsolutePath]; res.Found && ok {
				bindResolved(p, graph, fm, res, name, KindImport)
				bound = true
			}
		}
		if bound {
			return
		}
	}
	res := resolve.Resolve(resolve.Ref{ModuleName: fi.Module, Level: fi.Level, FromFile: path})
	target := fi.Module
	if target == "" {
		target = fm.Module // no module named: the importing file's own module is the best-effort label
	}
	bindResolved(p, graph, fm, res, target, KindImport)
}

// bindResolved records a reference when the resolver found a target
// file; on a miss, falls back to best-effort module-name matching.
func bindResolved(p *Project, graph *DependencyGraph, fm *FileModel, res resolve.Result, moduleHint string, kind ReferenceKind) {
	if res.Found {
		target, ok := p.Files[res.AbsolutePath]
		if ok {
			target.addIncoming(Reference{SourceModule: fm.Module, Kind: kind})
			graph.AddEdge(fm.Module, target.Module, string(kind), res.AbsolutePath)
			return
		}
	}
	bindBestEffort(p, graph, fm, moduleHint, kind)
}

// bindBestEffort implements the "resolution failure is not an error"
// rule: fall back to matching by module name within the project if
// such a module exists.
func bindBestEffort(p *Project, graph *DependencyGraph, fm *FileModel, moduleName string, kind ReferenceKind) {
	paths, ok := p.ByModule[moduleName]
	if !ok || len(paths) == 0 {
		return
	}
	for _, path := range paths {
		target := p.Files[path]
		target.addIncoming(Reference{SourceModule: fm.Module, Kind: kind})
	}
	graph.AddEdge(fm.Module, moduleName, string(kind), paths[0])
}

// bindQualifiedCall binds a qualified call to whatever module
// currently owns the qualifier name, only if such a module exists.
// Qualified calls never trigger path resolution.
func bindQualifiedCall(p *Project, graph *DependencyGraph, fm *FileModel, call parser.CallSite) {
	if !call.IsQualified || call.Qualifier == "" {
		return
	}
	if _, ok := p.ByModule[call.Qualifier]; !ok {
		return
	}
	bindBestEffort(p, graph, fm, call.Qualifier, KindCall)
}


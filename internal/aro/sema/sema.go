// Package sema runs the four-pass semantic analysis described for ARO:
// symbol tables and data-flow summaries, cross-feature-set dependency
// verification, event-graph cycle detection, and orphan-event warnings.
// The pass structure mirrors the teacher's own layered approach to static
// checks (symbol collection before any cross-reference validation), but
// the passes themselves are ARO-specific since the teacher has no event
// graph to analyze.
package sema

import (
	"strings"

	"github.com/arolang/aro-sub011/internal/aro/ast"
	"github.com/arolang/aro-sub011/internal/aro/diag"
	"github.com/arolang/aro-sub011/internal/aro/span"
	"github.com/arolang/aro-sub011/internal/aro/verbs"
)

// externalNames are always resolvable without a prior bind or global
// registration: they are supplied by the runtime context itself.
var externalNames = map[string]bool{
	"request": true, "context": true, "now": true, "Contract": true,
	"metrics": true, "environment": true, "http-server": true,
}

// Symbol is one entry in a feature set's symbol table.
type Symbol struct {
	Name             string
	FeatureSet       string
	BusinessActivity string
	Published        bool
	Span             span.Span
}

// DataFlowInfo summarizes one statement's data-flow shape.
type DataFlowInfo struct {
	Inputs     []string
	Outputs    []string
	SideEffect string // "", "response", "export-store", "export-delete", "export-publish", ...
}

// AnalyzedFeatureSet is one feature set plus its derived analysis.
type AnalyzedFeatureSet struct {
	FeatureSet *ast.FeatureSet
	Symbols    map[string]*Symbol
	DataFlow   []DataFlowInfo // aligned with FeatureSet.Statements
	Emits      []string       // event tags this feature set's statements emit
	HandlesTag string         // "" unless BusinessActivity ends in " Handler"
}

// AnalyzedProgram is the output of Analyze: the parsed program plus the
// per-feature-set analysis and the global published-symbol registry.
type AnalyzedProgram struct {
	Program     *ast.Program
	FeatureSets []*AnalyzedFeatureSet
	Globals     map[string]*Symbol // published symbols, keyed by name
}

// Analyze runs all four passes and returns the AnalyzedProgram together
// with the diagnostics collected along the way. Errors never abort a
// later pass: every pass runs over the same feature-set list regardless
// of earlier failures, matching the diagnostics-collect-without-aborting
// policy used throughout the front end.
func Analyze(prog *ast.Program) (*AnalyzedProgram, *diag.Bag) {
	bag := &diag.Bag{}
	ap := &AnalyzedProgram{Program: prog, Globals: map[string]*Symbol{}}

	for _, fs := range prog.FeatureSets {
		ap.FeatureSets = append(ap.FeatureSets, &AnalyzedFeatureSet{
			FeatureSet: fs,
			Symbols:    map[string]*Symbol{},
			HandlesTag: handledTag(fs.BusinessActivity),
		})
	}

	pass1SymbolsAndDataFlow(ap, bag)
	pass2DependencyVerification(ap, bag)
	pass3EventCycles(ap, bag)
	pass4Orphans(ap, bag)

	return ap, bag
}

// handledTag extracts the event type-tag a "<Tag> Handler" business
// activity subscribes to, or "" if the activity has no "Handler" suffix.
func handledTag(activity string) string {
	const suffix = " Handler"
	if strings.HasSuffix(activity, suffix) {
		return strings.TrimSuffix(activity, suffix)
	}
	return ""
}

// --- pass 1: symbol tables + data flow --------------------------------------

func pass1SymbolsAndDataFlow(ap *AnalyzedProgram, bag *diag.Bag) {
	for _, afs := range ap.FeatureSets {
		fs := afs.FeatureSet
		for _, stmt := range fs.Statements {
			df := deriveDataFlow(stmt)
			afs.DataFlow = append(afs.DataFlow, df)

			allowRebind := false
			if aro, ok := stmt.(*ast.AROStatement); ok {
				// Export verbs (Store the <order>, ...) act on a result
				// name an earlier statement may already have bound.
				allowRebind = verbs.AllowsRebind(aro.Verb) || verbs.RoleOf(aro.Verb) == ast.RoleExport
			}
			for _, out := range df.Outputs {
				registerBinding(afs, fs, out, stmt.StmtSpan(), allowRebind, bag)
			}

			if emit, ok := emittedTag(stmt); ok {
				afs.Emits = append(afs.Emits, emit)
			}

			if pub, ok := stmt.(*ast.PublishStatement); ok {
				sym := &Symbol{
					Name:             pub.Name.Base,
					FeatureSet:       fs.Name,
					BusinessActivity: fs.BusinessActivity,
					Published:        true,
					Span:             pub.Span,
				}
				afs.Symbols[pub.Name.Base] = sym
				ap.Globals[pub.Name.Base] = sym
			}
		}
	}
}

func registerBinding(afs *AnalyzedFeatureSet, fs *ast.FeatureSet, name string, sp span.Span, allowRebind bool, bag *diag.Bag) {
	if name == "" || name == "_expression_" || name == "_literal_" || strings.HasPrefix(name, "_") {
		return
	}
	if _, ok := afs.Symbols[name]; ok {
		if allowRebind {
			return
		}
		bag.Errorf(diag.KindSemanticError, sp,
			"rebind of %q in feature set %q is not permitted by its verb", name, fs.Name)
		return
	}
	afs.Symbols[name] = &Symbol{Name: name, FeatureSet: fs.Name, BusinessActivity: fs.BusinessActivity, Span: sp}
}

// deriveDataFlow computes the DataFlowInfo for one statement, and the
// immutability policy is applied by the caller via the Outputs list
// (registerBinding rejects a second bind unless the verb allows it).
func deriveDataFlow(stmt ast.Stmt) DataFlowInfo {
	var df DataFlowInfo
	switch n := stmt.(type) {
	case *ast.AROStatement:
		df = dataFlowForARO(n)
	case *ast.PublishStatement:
		df.SideEffect = "export-publish"
	case *ast.RequireStatement:
		df.Inputs = append(df.Inputs, n.Name.Base)
	case *ast.MatchStatement:
		df.Inputs = append(df.Inputs, collectRefs(n.Subject)...)
		for _, c := range n.Cases {
			df.Inputs = append(df.Inputs, collectRefs(c.Value)...)
		}
	case *ast.ForEachLoop:
		df.Inputs = append(df.Inputs, collectRefs(n.Source)...)
	}
	return df
}

func dataFlowForARO(s *ast.AROStatement) DataFlowInfo {
	var df DataFlowInfo
	role := verbs.RoleOf(s.Verb)

	if s.Object != nil && s.Object.Noun.Base != "_expression_" {
		df.Inputs = append(df.Inputs, s.Object.Noun.Base)
	}
	if s.Value.Expr != nil {
		df.Inputs = append(df.Inputs, collectRefs(s.Value.Expr)...)
	}
	if s.Guard != nil {
		df.Inputs = append(df.Inputs, collectRefs(s.Guard)...)
	}
	if s.Query != nil {
		if s.Query.Where != nil {
			df.Inputs = append(df.Inputs, collectRefs(s.Query.Where)...)
		}
		if s.Query.By != nil {
			df.Inputs = append(df.Inputs, s.Query.By.Base)
		}
	}
	if s.Range != nil {
		df.Inputs = append(df.Inputs, collectRefs(s.Range.To)...)
		df.Inputs = append(df.Inputs, collectRefs(s.Range.With)...)
	}

	switch role {
	case ast.RoleResponse:
		df.SideEffect = "response"
	case ast.RoleExport:
		df.SideEffect = "export-" + strings.ToLower(s.Verb)
		df.Outputs = append(df.Outputs, s.Result.Base)
	default:
		df.Outputs = append(df.Outputs, s.Result.Base)
	}
	return df
}

// emittedTag reports the event type-tag a Publish/Emit/Send-verb
// statement emits, derived from its result name.
func emittedTag(stmt ast.Stmt) (string, bool) {
	s, ok := stmt.(*ast.AROStatement)
	if !ok {
		return "", false
	}
	switch strings.ToLower(s.Verb) {
	case "emit", "publish", "send":
		return s.Result.Base, true
	default:
		return "", false
	}
}

func collectRefs(e ast.Expr) []string {
	var out []string
	walkRefs(e, &out)
	return out
}

func walkRefs(e ast.Expr, out *[]string) {
	if e == nil {
		return
	}
	ast.FoldExpr(e, ast.ExprVisitor{
		Interp: func(n *ast.InterpolatedStringExpr) any {
			for _, part := range n.Parts {
				walkRefs(part.Expr, out)
			}
			return nil
		},
		VariableRef: func(n *ast.VariableRefExpr) any {
			*out = append(*out, n.Noun.Base)
			return nil
		},
		Array: func(n *ast.ArrayLiteralExpr) any {
			for _, el := range n.Elements {
				walkRefs(el, out)
			}
			return nil
		},
		Map: func(n *ast.MapLiteralExpr) any {
			for _, ent := range n.Entries {
				walkRefs(ent.Key, out)
				walkRefs(ent.Value, out)
			}
			return nil
		},
		Binary: func(n *ast.BinaryExpr) any {
			walkRefs(n.Left, out)
			walkRefs(n.Right, out)
			return nil
		},
		Unary: func(n *ast.UnaryExpr) any {
			walkRefs(n.Operand, out)
			return nil
		},
		Member: func(n *ast.MemberExpr) any {
			walkRefs(n.Object, out)
			return nil
		},
		Subscript: func(n *ast.SubscriptExpr) any {
			walkRefs(n.Object, out)
			walkRefs(n.Index, out)
			return nil
		},
		Grouped: func(n *ast.GroupedExpr) any {
			walkRefs(n.Inner, out)
			return nil
		},
		Existence: func(n *ast.ExistenceExpr) any {
			*out = append(*out, n.Ref.Noun.Base)
			return nil
		},
		TypeCheck: func(n *ast.TypeCheckExpr) any {
			walkRefs(n.Subject, out)
			return nil
		},
	})
}

// --- pass 2: dependency verification ----------------------------------------

func pass2DependencyVerification(ap *AnalyzedProgram, bag *diag.Bag) {
	for _, afs := range ap.FeatureSets {
		fs := afs.FeatureSet
		bound := map[string]bool{}
		for i, stmt := range fs.Statements {
			df := afs.DataFlow[i]
			for _, in := range df.Inputs {
				if resolvable(in, bound, afs, ap) {
					continue
				}
				bag.Errorf(diag.KindSemanticError, stmt.StmtSpan(),
					"%q is not defined: not bound earlier in %q, not a runtime external, and not published to business activity %q",
					in, fs.Name, fs.BusinessActivity)
			}
			for _, out := range df.Outputs {
				bound[out] = true
			}
		}
	}
}

func resolvable(name string, bound map[string]bool, afs *AnalyzedFeatureSet, ap *AnalyzedProgram) bool {
	if name == "" || strings.HasPrefix(name, "_") {
		return true
	}
	if externalNames[name] {
		return true
	}
	if bound[name] {
		return true
	}
	if sym, ok := ap.Globals[name]; ok {
		return sym.BusinessActivity == afs.FeatureSet.BusinessActivity
	}
	return false
}

// --- pass 3: event cycles ----------------------------------------------------

func pass3EventCycles(ap *AnalyzedProgram, bag *diag.Bag) {
	// handlerOf maps an event tag to the feature set(s) that handle it.
	handlerOf := map[string][]*AnalyzedFeatureSet{}
	for _, afs := range ap.FeatureSets {
		if afs.HandlesTag != "" {
			handlerOf[afs.HandlesTag] = append(handlerOf[afs.HandlesTag], afs)
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[*AnalyzedFeatureSet]int{}
	var path []*AnalyzedFeatureSet
	reported := map[string]bool{}

	var visit func(afs *AnalyzedFeatureSet)
	visit = func(afs *AnalyzedFeatureSet) {
		color[afs] = gray
		path = append(path, afs)
		for _, tag := range afs.Emits {
			for _, next := range handlerOf[tag] {
				switch color[next] {
				case white:
					visit(next)
				case gray:
					reportCycle(bag, path, next, reported)
				}
			}
		}
		path = path[:len(path)-1]
		color[afs] = black
	}

	for _, afs := range ap.FeatureSets {
		if color[afs] == white {
			visit(afs)
		}
	}
}

func reportCycle(bag *diag.Bag, path []*AnalyzedFeatureSet, closesAt *AnalyzedFeatureSet, reported map[string]bool) {
	start := 0
	for i, afs := range path {
		if afs == closesAt {
			start = i
			break
		}
	}
	cycle := path[start:]
	var tags []string
	for _, afs := range cycle {
		tags = append(tags, afs.HandlesTag)
	}
	tags = append(tags, closesAt.HandlesTag)
	key := strings.Join(tags, "->")
	if reported[key] {
		return
	}
	reported[key] = true
	sp := span.Span{}
	if len(cycle) > 0 {
		sp = cycle[0].FeatureSet.Span
	}
	bag.Errorf(diag.KindSemanticError, sp, "circular event chain: %s", strings.Join(tags, " → "))
}

// --- pass 4: orphans ---------------------------------------------------------

func pass4Orphans(ap *AnalyzedProgram, bag *diag.Bag) {
	handled := map[string]bool{}
	for _, afs := range ap.FeatureSets {
		if afs.HandlesTag != "" {
			handled[afs.HandlesTag] = true
		}
	}
	emitted := map[string]span.Span{}
	for _, afs := range ap.FeatureSets {
		for i, tag := range afs.Emits {
			_ = i
			if _, ok := emitted[tag]; !ok {
				emitted[tag] = afs.FeatureSet.Span
			}
		}
	}
	for tag, sp := range emitted {
		if !handled[tag] {
			bag.Warnf(diag.KindSemanticWarning, sp, "event %q is emitted but has no handler", tag)
		}
	}

	unusedWarnings(ap, bag)
}

// unusedWarnings emits a warning for each non-published, non-external,
// non-underscore symbol that never appears as an Input in any
// DataFlowInfo within its own feature set.
func unusedWarnings(ap *AnalyzedProgram, bag *diag.Bag) {
	for _, afs := range ap.FeatureSets {
		used := map[string]bool{}
		for _, df := range afs.DataFlow {
			for _, in := range df.Inputs {
				used[in] = true
			}
		}
		for name, sym := range afs.Symbols {
			if sym.Published || strings.HasPrefix(name, "_") || externalNames[name] {
				continue
			}
			if !used[name] {
				bag.Warnf(diag.KindSemanticWarning, sym.Span, "%q is bound but never used", name)
			}
		}
	}
}

// Package engine evaluates wrangle pipelines: stages over immutable tables,
// composed left to right.
package engine

import (
	"fmt"

	"github.com/razeghi71/wrangle/ast"
	"github.com/razeghi71/wrangle/parser"
	"github.com/razeghi71/wrangle/table"
)

// Execute runs a full query pipeline on the given input table.
func Execute(query *ast.Query, input *table.Table) (*table.Table, error) {
	p, err := Compile(query)
	if err != nil {
		return nil, err
	}
	return p.Evaluate(input)
}

// Run parses text (a source followed by "| stage" parts), compiles it and
// evaluates it on input. The source name in text is ignored.
func Run(text string, input *table.Table) (*table.Table, error) {
	q, err := parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return Execute(q, input)
}

// Compile turns the stages of a parsed query into a Pipeline named after
// its source.
func Compile(query *ast.Query) (Pipeline, error) {
	p := NewPipeline().Named(query.Source)
	for i, st := range query.Stages {
		s, err := CompileStage(st)
		if err != nil {
			return Pipeline{}, fmt.Errorf("stage %d (%s): %w", i+1, st.Keyword, err)
		}
		p = p.Append(s)
	}
	return p, nil
}

// CompileStage turns one parsed stage into a Stage.
func CompileStage(st *ast.Stage) (Stage, error) {
	switch st.Verb {
	case ast.Derive:
		assignments := make([]Assignment, len(st.Assignments))
		for i, a := range st.Assignments {
			e, err := CompileExpr(a.Expr)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a.Column, err)
			}
			assignments[i] = Assign(a.Column, e)
		}
		return Derive(assignments...), nil
	case ast.Filter:
		e, err := CompileExpr(st.Predicate)
		if err != nil {
			return nil, err
		}
		return Filter(e), nil
	case ast.Project:
		return Project(st.Columns...), nil
	case ast.Head:
		return Head(st.N), nil
	case ast.Tail:
		return Tail(st.N), nil
	case ast.SortAsc, ast.SortDesc:
		return Sort(st.Verb == ast.SortAsc, st.Columns...), nil
	case ast.Group:
		return Group(st.Nested, st.Columns...), nil
	case ast.Reduce:
		summaries := make([]Summary, len(st.Assignments))
		for i, a := range st.Assignments {
			agg, err := CompileAggregate(a.Expr)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a.Column, err)
			}
			summaries[i] = Summarize(a.Column, agg)
		}
		return Reduce(st.Nested, summaries...), nil
	case ast.Count:
		return Count(), nil
	case ast.Distinct:
		return Distinct(st.Columns...), nil
	case ast.Rename:
		pairs := make([]RenamePair, len(st.Renames))
		for i, rp := range st.Renames {
			pairs[i] = RenamePair(rp)
		}
		return Rename(pairs...), nil
	case ast.Remove:
		return Remove(st.Columns...), nil
	}
	return nil, fmt.Errorf("unknown stage %s", st.Verb)
}

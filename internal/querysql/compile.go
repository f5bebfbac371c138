package querysql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/selectir/internal/fields"
	"github.com/roach88/selectir/internal/ir"
	"github.com/roach88/selectir/internal/query"
	"github.com/roach88/selectir/internal/queryir"
)

// identPattern guards every name spliced into SQL text.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var binaryOps = map[string]string{
	"+": "+", "-": "-", "*": "*", "/": "/",
	"==": "=", "!=": "<>",
	"<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"and": "AND", "or": "OR",
}

var unaryOps = map[string]string{
	"-":   "-",
	"not": "NOT ",
}

// SQLCompiler renders a query's compiled select as parameterized SQL for
// SQLite. It never executes anything.
//
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	// Values holds interpolated runtime values by name. Parameters and
	// deferred projections are resolved from it.
	Values map[string]any
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler(values map[string]any) *SQLCompiler {
	if values == nil {
		values = make(map[string]any)
	}
	return &SQLCompiler{Values: values}
}

// Compile converts q to parameterized SQL.
// Returns (sql, args, error); args line up with the ? placeholders.
//
// Deferred projections are checked with fields.Validate here, which is
// the first point their value is known.
func (c *SQLCompiler) Compile(q *query.Query) (string, []any, error) {
	if q == nil || q.Select == nil {
		return "", nil, fmt.Errorf("cannot compile query without a select")
	}
	if len(q.Sources) == 0 {
		return "", nil, fmt.Errorf("query %s has no sources", q.ID)
	}

	r := &renderer{values: c.Values, sel: q.Select, sources: len(q.Sources)}
	if err := r.tree(q.Select.Tree); err != nil {
		return "", nil, err
	}
	if len(r.columns) == 0 {
		return "", nil, fmt.Errorf("select produces no columns")
	}

	from := make([]string, len(q.Sources))
	for i, table := range q.Sources {
		if !identPattern.MatchString(table) {
			return "", nil, fmt.Errorf("invalid table name %q", table)
		}
		from[i] = fmt.Sprintf("%s AS s%d", table, i)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(r.columns, ", "),
		strings.Join(from, ", "))

	return sql, r.args, nil
}

// renderer flattens the select tree into columns in depth-first order.
type renderer struct {
	values  map[string]any
	sel     *queryir.CompiledSelect
	sources int

	columns []string
	args    []any
}

func (r *renderer) tree(t queryir.Tree) error {
	switch n := t.(type) {
	case queryir.TupleNode:
		return r.trees(n.Children)
	case queryir.ListNode:
		return r.trees(n.Children)
	case queryir.MapNode:
		if n.Base != nil {
			if err := r.tree(n.Base); err != nil {
				return err
			}
		}
		for _, p := range n.Pairs {
			// Atom keys shape the row; they are not columns.
			if leaf, ok := p.Key.(queryir.LeafExpr); !ok || !isAtom(leaf.Expr) {
				if err := r.tree(p.Key); err != nil {
					return err
				}
			}
			if err := r.tree(p.Value); err != nil {
				return err
			}
		}
		return nil
	case queryir.SourceRef:
		return r.source(n.Index)
	case queryir.LeafExpr:
		col, err := r.expr(n.Expr)
		if err != nil {
			return err
		}
		r.columns = append(r.columns, col)
		return nil
	default:
		return fmt.Errorf("unsupported tree node: %T", t)
	}
}

func (r *renderer) trees(ts []queryir.Tree) error {
	for _, t := range ts {
		if err := r.tree(t); err != nil {
			return err
		}
	}
	return nil
}

// source emits the columns of bound source idx according to its
// projection; sources without one load every column.
func (r *renderer) source(idx int) error {
	if idx < 0 || idx >= r.sources {
		return fmt.Errorf("source %d not in FROM (%d sources)", idx, r.sources)
	}

	var names []string
	switch proj := r.sel.Take[idx].(type) {
	case nil, queryir.Full:
		r.columns = append(r.columns, fmt.Sprintf("s%d.*", idx))
		return nil
	case queryir.Restricted:
		names = proj.Fields.Names()
	case queryir.Deferred:
		v, ok := r.values[proj.Name]
		if !ok {
			return fmt.Errorf("missing value for ^%s", proj.Name)
		}
		fl, err := fields.Parse(v)
		if err != nil {
			return fmt.Errorf("fields for source %d (^%s): %w", idx, proj.Name, err)
		}
		names = fl.Names()
	default:
		return fmt.Errorf("unsupported projection: %T", proj)
	}

	if len(names) == 0 {
		return fmt.Errorf("source %d projects no fields", idx)
	}
	for _, name := range names {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("invalid field name %q", name)
		}
		r.columns = append(r.columns, fmt.Sprintf("s%d.%s", idx, name))
	}
	return nil
}

// expr renders e, appending its arguments in placeholder order.
func (r *renderer) expr(e queryir.Expr) (string, error) {
	switch x := e.(type) {
	case queryir.Lit:
		if _, isNull := x.Value.(ir.IRNull); isNull || x.Value == nil {
			return "NULL", nil
		}
		r.args = append(r.args, ir.ToGo(x.Value))
		return "?", nil
	case queryir.Atom:
		r.args = append(r.args, x.Name)
		return "?", nil
	case queryir.ParamRef:
		if x.Index < 0 || x.Index >= len(r.sel.Params) {
			return "", fmt.Errorf("param %d out of range", x.Index)
		}
		name := r.sel.Params[x.Index].Name
		v, ok := r.values[name]
		if !ok {
			return "", fmt.Errorf("missing value for ^%s", name)
		}
		r.args = append(r.args, v)
		return "?", nil
	case queryir.FieldRef:
		if !identPattern.MatchString(x.Field) {
			return "", fmt.Errorf("invalid field name %q", x.Field)
		}
		return fmt.Sprintf("s%d.%s", x.Source, x.Field), nil
	case queryir.SourceExpr:
		return "", fmt.Errorf("source s%d cannot be used as a value in SQL", x.Source)
	case queryir.Call:
		return r.call(x)
	case queryir.ListExpr:
		elems, err := r.exprs(x.Elems)
		if err != nil {
			return "", err
		}
		return "json_array(" + strings.Join(elems, ", ") + ")", nil
	default:
		return "", fmt.Errorf("unsupported expression: %T", e)
	}
}

func (r *renderer) exprs(es []queryir.Expr) ([]string, error) {
	out := make([]string, len(es))
	for i, e := range es {
		s, err := r.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (r *renderer) call(x queryir.Call) (string, error) {
	args, err := r.exprs(x.Args)
	if err != nil {
		return "", err
	}

	if op, ok := binaryOps[x.Name]; ok && len(args) == 2 {
		return fmt.Sprintf("(%s %s %s)", args[0], op, args[1]), nil
	}
	if op, ok := unaryOps[x.Name]; ok && len(args) == 1 {
		return fmt.Sprintf("(%s%s)", op, args[0]), nil
	}
	if !identPattern.MatchString(x.Name) {
		return "", fmt.Errorf("unsupported operator %q with %d arguments", x.Name, len(args))
	}
	return fmt.Sprintf("%s(%s)", strings.ToUpper(x.Name), strings.Join(args, ", ")), nil
}

func isAtom(e queryir.Expr) bool {
	_, ok := e.(queryir.Atom)
	return ok
}

// Package queryir defines the canonical intermediate representation of a
// compiled select clause.
//
// A CompiledSelect has three parts that the downstream compiler consumes
// together:
//
//	Tree    the shape of each result row (tuples, maps, lists, whole
//	        sources and leaf expressions)
//	Params  runtime values extracted from the clause, in left-to-right
//	        depth-first order
//	Take    per-source field projection (full, restricted, or deferred to
//	        execution time)
//
// POSITION CORRELATION:
//
// The i-th ParamRef met in a depth-first walk of Tree refers to Params[i].
// Backends rely on this to emit placeholders and arguments in one pass.
//
//	{u, ^p1, [^p2, v]}
//
// compiles to
//
//	TupleNode{SourceRef{0}, LeafExpr{ParamRef{0}}, ListNode{LeafExpr{ParamRef{1}}, SourceRef{1}}}
//	Params: [p1, p2]
//
// SEALED INTERFACES:
//
// Tree, Expr and Projection are sealed with marker methods so backends can
// switch over them exhaustively.
//
// ENCODING:
//
// Encode turns a CompiledSelect into an ir.IRObject whose canonical JSON
// (ir.MarshalCanonical) is stable across runs. Fingerprint hashes that
// encoding under ir.DomainSelect; the source location is not part of it.
package queryir

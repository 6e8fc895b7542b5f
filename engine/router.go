package engine

// RoutingDecision records one edge evaluation, kept only when the engine
// was asked to recordRoutingHistory.
type RoutingDecision struct {
	EdgeID   string
	Matched  bool
	Bucket   EdgeKind
}

// RouteResult is the Conditional Router's verdict for one node.
type RouteResult struct {
	// Edge is the chosen edge. Nil means "no route": either the node has
	// no outgoing edges, or none qualified and there was no default.
	Edge      *Edge
	Decisions []RoutingDecision
}

// expressionEvaluator is the minimal surface the router needs from
// engine/expr.Evaluator, so this package does not import expr's CEL
// dependency directly.
type expressionEvaluator interface {
	EvaluateBool(exprText string, scope Scope) bool
}

// Router implements the Conditional Router: given a node's outgoing
// edges and the current scope, it picks the next edge by bucketing edges
// into error/normal/default and evaluating guards in declaration order.
type Router struct {
	eval           expressionEvaluator
	recordHistory  bool
}

// NewRouter returns a Router that evaluates guards with eval. Pass
// recordHistory=true to populate RouteResult.Decisions.
func NewRouter(eval expressionEvaluator, recordHistory bool) *Router {
	return &Router{eval: eval, recordHistory: recordHistory}
}

// Route picks the next edge for a node given its outgoing edges (in
// declaration order), whether the node's execution failed, and the scope
// guards evaluate against.
func (r *Router) Route(edges []Edge, nodeFailed bool, scope Scope) RouteResult {
	var errorEdges, normalEdges, defaultEdges []Edge
	for _, e := range edges {
		switch e.Kind {
		case EdgeError:
			errorEdges = append(errorEdges, e)
		case EdgeDefault:
			defaultEdges = append(defaultEdges, e)
		default:
			normalEdges = append(normalEdges, e)
		}
	}

	var result RouteResult
	primary := normalEdges
	primaryKind := EdgeNormal
	if nodeFailed {
		primary = errorEdges
		primaryKind = EdgeError
	}

	for _, e := range primary {
		matched := r.eval.EvaluateBool(e.Guard, scope)
		if r.recordHistory {
			result.Decisions = append(result.Decisions, RoutingDecision{EdgeID: e.ID, Matched: matched, Bucket: primaryKind})
		}
		if matched {
			edge := e
			result.Edge = &edge
			return result
		}
	}

	if len(defaultEdges) > 0 {
		edge := defaultEdges[0]
		if r.recordHistory {
			result.Decisions = append(result.Decisions, RoutingDecision{EdgeID: edge.ID, Matched: true, Bucket: EdgeDefault})
		}
		result.Edge = &edge
		return result
	}

	return result
}

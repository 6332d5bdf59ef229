// Package planir defines the planner-facing intermediate representation
// produced by the compiler front end.
//
// A statement lowers to a chain of PlannerQuery segments. Each segment
// carries a QueryGraph (the pattern to solve, with its predicates and
// optional sub-graphs) and a Horizon (the projection boundary that
// separates it from the next segment). UNION statements lower to a
// UnionQuery over independent branch chains sharing one column list.
//
// The IR is fully resolved: every element has a name, every predicate
// knows the symbols it depends on, and property maps from read patterns
// have already been rewritten into predicates. A planner consuming this
// package never needs to look back at the source text or the syntax
// tree shape.
package planir

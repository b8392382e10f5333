// Package router computes least-cost network routes and routes whole plans.
//
// Travel times and disutilities take the travelling person explicitly, so a
// single router can serve concurrent callers: knowledge-aware wrappers use the
// person to hide links it does not know, and live estimators read link loads
// published by the link vehicle counter.
package router

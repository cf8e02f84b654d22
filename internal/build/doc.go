// Package build runs the fixed task graphs of the site pipeline.
//
// A graph is a tree of leaf tasks composed with Series and Parallel. The shape
// of each graph is hand-written (see DevGraph and ProductionGraph); nothing is
// computed from declared dependencies. Every leaf is timed and classified into
// the build Report, and Observers receive callbacks as tasks complete so that
// metrics, history and notifications can hook in without touching task code.
package build

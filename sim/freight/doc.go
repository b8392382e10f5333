// Package freight solves a carrier's single-depot distribution problem with a
// ruin-and-recreate search.
//
// A DTWSolverFactory checks that the problem really is a distribution problem
// (every vehicle and every shipment start at the same depot) and configures a
// Solver with capacity and time-window constraints. The solver builds an
// initial solution by best insertion and then repeatedly removes a part of the
// solution (randomly or around a seed shipment) and reinserts it, accepting
// worse solutions within a threshold that is calibrated during warm-up
// iterations and decays over the run.
package freight

// Package filter selects events and persons.
//
// Event filters sit between the events manager and a downstream handler and
// pass an event on only if every filter in the chain accepts it. Person filters
// prune a population before simulation, for example to drop persons whose
// plans touch links or nodes that are missing from an exported network.
package filter

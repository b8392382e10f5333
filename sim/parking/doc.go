// Package parking adds parking search to car legs.
//
// Plans using parking have the shape
//
//	act - walk - parking - car - parking - walk - act
//
// A car leg does not end where its route ends: when the vehicle reaches the
// end link the search strategy looks for a free facility there, and extends the
// route one link at a time until it finds one. Once parked, the walk legs and
// the parking activities around the following car leg are moved to the
// parking link and every parking event is scored.
package parking

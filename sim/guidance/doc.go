// Package guidance equips a fraction of agents with en-route guidance.
//
// Equipped agents ask a route provider for the best remaining route when they
// depart and each time they approach a node, and switch to it if it differs
// from the route they are following. The provider routes over reactive travel
// times, typically link times that mark incident links as impassable.
package guidance

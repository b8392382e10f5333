// Package testutil provides shared scenario fixtures for mobsim test packages.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mobsim/mobsim/sim"
)

// CorridorScenario is a small network with a direct corridor and a detour:
//
//	A --a--> B --b--> C --c--> D
//	          \--b2-> E --e2-/
//	D --back--> A, D --dr--> C, C --cb--> B
//
// All links are 10 m/s with 3600 veh/h. Person p1 drives home (a) to work (c)
// and back; person p2 walks.
const CorridorScenario = `
seed: 42
qsim:
  start_time: "06:00:00"
  end_time: "12:00:00"
network:
  nodes:
    - {id: A, x: 0, y: 0}
    - {id: B, x: 1000, y: 0}
    - {id: C, x: 2000, y: 0}
    - {id: D, x: 3000, y: 0}
    - {id: E, x: 2000, y: 1000}
  links:
    - {id: a, from: A, to: B, length: 1000, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: b, from: B, to: C, length: 1000, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: c, from: C, to: D, length: 1000, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: b2, from: B, to: E, length: 1500, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: e2, from: E, to: C, length: 1500, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: back, from: D, to: A, length: 3000, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: dr, from: D, to: C, length: 1000, freespeed: 10, capacity: 3600, lanes: 1}
    - {id: cb, from: C, to: B, length: 1000, freespeed: 10, capacity: 3600, lanes: 1}
population:
  - id: p1
    plan:
      - activity: {type: home, link: a, end_time: "07:00:00"}
      - leg: {mode: car, route: [a, b, c]}
      - activity: {type: work, link: c, end_time: "08:00:00"}
      - leg: {mode: car, route: [c, back, a]}
      - activity: {type: home, link: a}
  - id: p2
    plan:
      - activity: {type: home, link: a, end_time: "07:00:00"}
      - leg: {mode: walk}
      - activity: {type: work, link: c}
`

// Config parses scenario YAML and fails the test on error.
func Config(t testing.TB, yaml string) *sim.Config {
	t.Helper()
	cfg, err := sim.ParseConfig([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

// Scenario parses and builds scenario YAML and fails the test on error.
func Scenario(t testing.TB, yaml string) *sim.Scenario {
	t.Helper()
	sc, err := sim.BuildScenario(Config(t, yaml))
	require.NoError(t, err)
	return sc
}

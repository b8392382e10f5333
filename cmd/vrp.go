package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/freight"
)

var iterations int // Overrides freight.iterations

// vrpCmd solves the scenario's freight distribution problem.
var vrpCmd = &cobra.Command{
	Use:   "vrp",
	Short: "Plan carrier tours for the scenario's shipments",
	Run: func(cmd *cobra.Command, args []string) {
		if scenarioPath == "" {
			logrus.Fatalf("No scenario provided. Use --scenario <file>.")
		}
		sc, err := sim.LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("Failed to load scenario: %v", err)
		}
		if err := applyVRPOverrides(cmd, sc.Config); err != nil {
			logrus.Fatalf("Invalid overrides: %v", err)
		}
		if _, err := solveFreight(context.Background(), sc, os.Stdout); err != nil {
			logrus.Fatalf("Freight planning failed: %v", err)
		}
	},
}

// applyVRPOverrides copies explicitly set flags into cfg and validates it
// again.
func applyVRPOverrides(cmd *cobra.Command, cfg *sim.Config) error {
	if cmd.Flags().Changed("iterations") {
		cfg.Freight.Iterations = iterations
	}
	return cfg.Validate()
}

// solveFreight builds network costs, creates a solver through the
// distribution factory and prints the best tours.
func solveFreight(ctx context.Context, sc *sim.Scenario, out io.Writer) (*freight.Solution, error) {
	cfg := sc.Config.Freight
	shipments, vehicles, err := freight.FromConfig(cfg, sc.Network)
	if err != nil {
		return nil, err
	}
	costs := freight.NewNetworkCosts(sc.Network, cfg.CostPerSecond, cfg.CostPerMeter)

	factory := freight.NewDTWSolverFactory()
	factory.Iterations = cfg.Iterations
	factory.WarmupIterations = cfg.WarmupIterations
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(sc.Config.Seed))
	factory.SetRandom(rng.ForSubsystem(sim.SubsystemFreight))

	solver, err := factory.CreateSolver(shipments, vehicles, costs)
	if err != nil {
		return nil, err
	}
	best, err := solver.Solve(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out, "=== Freight Tours ===")
	for _, t := range best.UsedTours() {
		fmt.Fprintln(out, t.String())
	}
	for _, s := range best.Unassigned {
		fmt.Fprintf(out, "unassigned %s\n", s.ID)
	}
	fmt.Fprintf(out, "Total cost           : %.1f\n", best.Cost())
	return best, nil
}

func init() {
	vrpCmd.Flags().IntVar(&iterations, "iterations", 200, "Search iterations overriding the scenario")
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/counter"
	"github.com/mobsim/mobsim/sim/guidance"
	"github.com/mobsim/mobsim/sim/output"
	"github.com/mobsim/mobsim/sim/parking"
	"github.com/mobsim/mobsim/sim/qsim"
	"github.com/mobsim/mobsim/sim/router"
	"github.com/mobsim/mobsim/sim/trace"
)

var (
	seed         int64  // Overrides the scenario seed
	endTime      string // Overrides qsim.end_time
	eventsOut    string // Overrides output.events_file
	parquetOut   string // Overrides output.parquet_file
	showProgress bool   // Progress bar on stderr
)

// runCmd routes the population and runs the queue simulation.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the traffic simulation of a scenario",
	Run: func(cmd *cobra.Command, args []string) {
		if scenarioPath == "" {
			logrus.Fatalf("No scenario provided. Use --scenario <file>.")
		}
		cfg, err := sim.LoadConfig(scenarioPath)
		if err != nil {
			logrus.Fatalf("Failed to load scenario: %v", err)
		}
		if err := applyRunOverrides(cmd, cfg); err != nil {
			logrus.Fatalf("Invalid flag value: %v", err)
		}
		sc, err := sim.BuildScenario(cfg)
		if err != nil {
			logrus.Fatalf("Failed to build scenario: %v", err)
		}

		var progress io.Writer
		if showProgress {
			progress = os.Stderr
		}
		if _, err := runSimulation(context.Background(), sc, os.Stdout, progress); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// applyRunOverrides copies explicitly set flags into cfg and validates again.
func applyRunOverrides(cmd *cobra.Command, cfg *sim.Config) error {
	if cmd.Flags().Changed("seed") {
		logrus.Infof("CLI --seed %d overrides scenario seed %d", seed, cfg.Seed)
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("end-time") {
		cfg.QSim.EndTime = endTime
	}
	if cmd.Flags().Changed("events-out") {
		cfg.Output.EventsFile = eventsOut
	}
	if cmd.Flags().Changed("parquet-out") {
		cfg.Output.ParquetFile = parquetOut
	}
	return cfg.Validate()
}

// runResult collects what a run produced.
type runResult struct {
	RunID    string
	QSim     *qsim.QSim
	Metrics  *sim.TripMetrics
	Trace    *trace.SimulationTrace
	Analyzer *guidance.Analyzer
	Scores   *parking.StrategyScores
	Counter  *counter.LinkVehiclesCounter
}

// runSimulation routes the population, assembles the QSim from the modules
// enabled in the scenario and runs it. Summaries go to out; a progress bar is
// drawn on progress if it is not nil.
func runSimulation(ctx context.Context, sc *sim.Scenario, out, progress io.Writer) (*runResult, error) {
	cfg := sc.Config
	res := &runResult{RunID: uuid.NewString()}
	logrus.Infof("Run %s: seed %d, %s-%s", res.RunID, cfg.Seed, cfg.QSim.StartTime, cfg.QSim.EndTime)

	if err := router.RoutePopulation(ctx, router.NewScenarioPlanRouter(sc), sc.Population, cfg.Routing.Workers); err != nil {
		return nil, err
	}

	em := sim.NewEventsManager()
	res.Metrics = sim.NewTripMetrics()
	em.AddHandler(res.Metrics)
	res.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.Trace)})

	modules := []qsim.Module{qsim.StandardModule()}
	load := router.NewLinkLoad()
	if cfg.Counter.Enabled || cfg.Guidance.Enabled {
		modules = append(modules, counter.Module(func(*qsim.Context) *counter.LinkVehiclesCounter {
			res.Counter = counter.New(cfg.Counter.InfoPeriod, cfg.QSim.NetworkModes, load)
			return res.Counter
		}))
	}
	if cfg.Guidance.Enabled {
		res.Analyzer = guidance.NewAnalyzer()
		modules = append(modules, guidance.Module(guidance.Options{
			Mean:     &router.CurrentTravelTime{Load: load, FlowCapacityFactor: cfg.QSim.FlowCapacityFactor},
			Analyzer: res.Analyzer,
			Trace:    res.Trace,
		}))
	}
	if cfg.Parking.Enabled {
		res.Scores = parking.NewStrategyScores()
		modules = append(modules, parking.Module(func(ctx *qsim.Context) (*parking.RandomSearch, error) {
			return parking.NewFromContext(ctx, res.Scores, res.Trace)
		}))
	}
	if progress != nil {
		modules = append(modules, progressModule(cfg.QSim.Start, cfg.QSim.End, progress))
	}

	sinks, err := output.Open(cfg.Output, res.RunID, output.Filters(cfg.Output, sc.Network, sc.Population)...)
	if err != nil {
		return nil, err
	}
	sinks.Attach(em)

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	q, err := qsim.NewProvider(sc, em, rng, modules...).Get()
	if err != nil {
		_ = sinks.Close()
		return nil, err
	}
	res.QSim = q
	runErr := q.Run(ctx)
	if err := sinks.Close(); err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}

	printSummary(out, res)

	if cfg.Output.S3.Bucket != "" && len(sinks.Files) > 0 {
		uploader, err := output.NewS3UploaderFromConfig(ctx, cfg.Output.S3)
		if err != nil {
			return nil, err
		}
		if err := uploader.Upload(ctx, res.RunID, sinks.Files...); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func printSummary(w io.Writer, res *runResult) {
	fmt.Fprintf(w, "Run ID               : %s\n", res.RunID)
	res.Metrics.Print(w)
	if res.Counter != nil {
		fmt.Fprintf(w, "Lost vehicles        : %d\n", res.Counter.LostVehicles())
	}
	if res.Analyzer != nil {
		fmt.Fprintln(w, "=== Route Guidance ===")
		fmt.Fprintf(w, "Guided persons       : %d\n", len(res.Analyzer.GuidedPersons()))
		fmt.Fprintf(w, "Replans              : %d\n", res.Analyzer.Replans())
		fmt.Fprintf(w, "Changed routes       : %d\n", res.Analyzer.ChangedRoutes())
	}
	if res.Scores != nil {
		fmt.Fprintln(w, "=== Parking Scores ===")
		for _, p := range res.QSim.Scenario().Population.Persons() {
			if legs := res.Scores.Legs(p.ID); len(legs) > 0 {
				fmt.Fprintf(w, "%-20s : %.2f over legs %v\n", p.ID, res.Scores.Total(p.ID), legs)
			}
		}
	}
	if res.Trace != nil {
		s := trace.Summarize(res.Trace)
		fmt.Fprintln(w, "=== Decision Trace ===")
		fmt.Fprintf(w, "Replans              : %d (%d changed)\n", s.TotalReplans, s.ChangedRoutes)
		fmt.Fprintf(w, "Parked vehicles      : %d at %d facilities\n", s.ParkedVehicles, s.UniqueFacilities)
		fmt.Fprintf(w, "Search extensions    : %d\n", s.SearchExtensions)
		fmt.Fprintf(w, "Search duration      : mean %.1f s, max %.1f s\n", s.MeanSearchDuration, s.MaxSearchDuration)
	}
}

func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed overriding the scenario seed")
	runCmd.Flags().StringVar(&endTime, "end-time", "", "Simulation end time (HH:MM:SS) overriding the scenario")
	runCmd.Flags().StringVar(&eventsOut, "events-out", "", "JSON lines events file overriding the scenario")
	runCmd.Flags().StringVar(&parquetOut, "parquet-out", "", "Parquet events file overriding the scenario")
	runCmd.Flags().BoolVar(&showProgress, "progress", false, "Show a progress bar on stderr")
}

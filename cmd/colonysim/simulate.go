package main

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/colony-ai/internal/config"
	"github.com/talgya/colony-ai/internal/flowsim"
)

var (
	optimizePlan bool
	showTimeline bool
	horizonDays  int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <plan.yaml>",
	Short: "Replay a phased production plan and report bottlenecks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		plan, err := flowsim.LoadPlan(args[0])
		if err != nil {
			return err
		}
		return simulate(cmd.OutOrStdout(), cfg.FlowSim, plan)
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&optimizePlan, "optimize", false, "rebalance and retime the plan before simulating")
	simulateCmd.Flags().BoolVar(&showTimeline, "timeline", false, "print every day with activity")
	simulateCmd.Flags().IntVar(&horizonDays, "horizon", 0, "override the plan's horizon in days")
}

func simulate(w io.Writer, cfg flowsim.Config, plan flowsim.Plan) error {
	cfg.Tables = cfg.Tables.Merge(plan.Tables)
	sim := flowsim.New(cfg, flowsim.StaticStock(plan.Inventory), flowsim.WithPowerUnits(plan.PowerUnits))

	phases := plan.Phases
	if optimizePlan {
		phases = sim.OptimizeFlow(phases)
		fmt.Fprintln(w, "Optimized phases:")
		for _, p := range phases {
			fmt.Fprintf(w, "  day %-4d %s (%d productions, %d missions)\n", p.StartDay, p.Name, len(p.Productions), len(p.Missions))
		}
	}

	horizon := plan.HorizonDays
	if horizonDays > 0 {
		horizon = horizonDays
	}
	res := sim.SimulatePlan(phases, horizon)

	name := plan.Name
	if name == "" {
		name = "plan"
	}
	fmt.Fprintf(w, "%s: %d phases over %d days, %skW available\n",
		name, len(phases), horizon, humanize.Commaf(sim.AvailablePowerKW()))

	if showTimeline {
		for _, d := range res.Timeline {
			if len(d.ProductionsCompleted)+len(d.MissionsCompleted)+len(d.Bottlenecks) == 0 {
				continue
			}
			fmt.Fprintf(w, "  day %d: built %v, missions %v\n", d.Day, d.ProductionsCompleted, d.MissionsCompleted)
			for _, b := range d.Bottlenecks {
				fmt.Fprintf(w, "    ! %s\n", b)
			}
		}
	}

	fmt.Fprintf(w, "Completion day: %d\n", res.CompletionDay)
	if len(res.Unfinished) > 0 {
		fmt.Fprintf(w, "Unfinished: %v\n", res.Unfinished)
	}
	fmt.Fprintln(w, "Final inventory:")
	for _, k := range slices.Sorted(maps.Keys(res.FinalInventory)) {
		fmt.Fprintf(w, "  %-28s %s\n", k, humanize.Commaf(res.FinalInventory[k]))
	}
	if len(res.Bottlenecks) > 0 {
		fmt.Fprintf(w, "Bottlenecks (%d):\n", len(res.Bottlenecks))
		for _, b := range res.Bottlenecks {
			fmt.Fprintf(w, "  %s\n", b)
		}
	}
	return nil
}

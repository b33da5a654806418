package main

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mallathon/config"
	"mallathon/game"
)

var (
	simSeed     uint64
	simSteps    int
	simStride   float64
	simInterval time.Duration
	simMode     string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Walk a seeded course headless and print the result",
	Long: `Feeds a synthetic accelerometer trace (one peak per step) through the
pacer and the orb course, printing every collection and the final reading.

Example:
  pacerd simulate --seed 7 --steps 200 --interval 450ms`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 1, "Course seed")
	simulateCmd.Flags().IntVar(&simSteps, "steps", 100, "Number of steps to walk")
	simulateCmd.Flags().Float64Var(&simStride, "stride", game.DefaultStrideLength, "Stride length in meters")
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 500*time.Millisecond, "Time between steps")
	simulateCmd.Flags().StringVar(&simMode, "mode", "crossing", "Collection mode: crossing or band")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simSteps < 0 {
		return fmt.Errorf("steps must be >= 0, got %d", simSteps)
	}
	if simStride <= 0 {
		return fmt.Errorf("stride must be > 0, got %v", simStride)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// flags given on the command line win over the config file
	flags := cmd.Flags()
	tuning := cfg.PacerTuning()
	if flags.Changed("stride") || configPath == "" {
		tuning.StrideLength = simStride
	}
	if flags.Changed("mode") || configPath == "" {
		cfg.Course.CollectMode = simMode
	}
	seed := simSeed
	if !flags.Changed("seed") && cfg.Course.Seed != 0 {
		seed = cfg.Course.Seed
	}
	mode, err := config.ParseCollectMode(cfg.Course.CollectMode)
	if err != nil {
		return err
	}

	course := game.NewCourse(cfg.Course.Orbs, cfg.Course.Spacing, game.SeededRand(seed))
	course.SetMode(mode)
	run := game.NewRun(game.NewPacer(tuning, true), course)
	run.Start()

	out := cmd.OutOrStdout()
	rest := mgl64.Vec3{0, 0, 9.81}
	peak := mgl64.Vec3{1.5, 2, tuning.StepThreshold + 1}
	now := time.Unix(0, 0)
	for i := 0; i < simSteps; i++ {
		now = now.Add(simInterval)
		run.Sample(&rest, now.Add(-simInterval/2))
		score := course.Score()
		for _, o := range run.Sample(&peak, now) {
			score += o.Tier.Points()
			fmt.Fprintf(out, "step %4d  orb %2d  %-9s +%d  score %d\n",
				i+1, o.ID, o.Tier, o.Tier.Points(), score)
		}
		game.Step(run, now)
	}

	st := run.Pacer.State()
	snap := course.Snapshot()
	fmt.Fprintf(out, "steps %d  distance %.2fm  cadence %d spm  pace %s\n",
		st.StepCount, st.Distance, st.Cadence, st.PaceStatus)
	fmt.Fprintf(out, "score %d  collected %d  remaining %d\n", snap.Score, snap.Collected, snap.Remaining())
	logger.Debug("simulation done", zap.Uint64("seed", seed), zap.Int("steps", st.StepCount))
	return nil
}

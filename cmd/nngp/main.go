package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/lawlerem/staRVe/internal/models"
	"github.com/lawlerem/staRVe/pkg/config"
	"github.com/lawlerem/staRVe/pkg/covariance"
	"github.com/lawlerem/staRVe/pkg/nngp"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nngp",
		Short:         "Nearest-neighbour Gaussian process driver",
		Long:          "Evaluate, simulate and predict a nearest-neighbour Gaussian process described by a YAML problem file.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "nngp.yaml", "Path to the configuration file")

	root.AddCommand(
		&cobra.Command{
			Use:   "loglik <problem>",
			Short: "Print the log-likelihood of the stored field",
			Args:  cobra.ExactArgs(1),
			RunE:  runLogLik,
		},
		&cobra.Command{
			Use:   "simulate <problem>",
			Short: "Draw a new field by ancestral simulation",
			Args:  cobra.ExactArgs(1),
			RunE:  runSimulate,
		},
		&cobra.Command{
			Use:   "predict <problem>",
			Short: "Score the observed auxiliary values against the field",
			Args:  cobra.ExactArgs(1),
			RunE:  runPredict,
		},
		&cobra.Command{
			Use:   "simulate-aux <problem>",
			Short: "Draw values at the auxiliary locations given the field",
			Args:  cobra.ExactArgs(1),
			RunE:  runSimulateAux,
		},
		&cobra.Command{
			Use:   "gradient <problem>",
			Short: "Print the gradient of the log-likelihood with respect to the field",
			Args:  cobra.ExactArgs(1),
			RunE:  runGradient,
		},
		&cobra.Command{
			Use:   "init-config [path]",
			Short: "Write a default configuration file",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runInitConfig,
		},
	)
	return root
}

// session is a loaded configuration, problem and engine
type session struct {
	cfg     *config.Config
	problem *models.Problem
	engine  *nngp.Engine
	logger  *slog.Logger
}

func openSession(cmd *cobra.Command, problemPath string) (*session, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	problem, err := models.LoadProblem(problemPath)
	if err != nil {
		return nil, err
	}
	graph, err := problem.PersistentGraph()
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", problemPath, err)
	}
	kernel, err := buildKernel(cfg, problem.Kernel)
	if err != nil {
		return nil, err
	}

	opts := []nngp.Option{
		nngp.WithWorkers(cfg.Engine.Workers),
		nngp.WithCalibration(cfg.Engine.Calibrate),
		nngp.WithLogger(logger),
	}
	if cfg.Engine.Seed != 0 {
		opts = append(opts, nngp.WithSource(rand.NewSource(cfg.Engine.Seed)))
	}

	engine, err := nngp.New(kernel, problem.Field, problem.Means(), graph, opts...)
	if err != nil {
		return nil, err
	}
	logger.Debug("engine ready",
		"locations", graph.Size(),
		"blocks", len(graph.Blocks),
		"model", kernel.Model(),
		"range", kernel.Range(),
		"marginalSd", kernel.MarginalSd())

	return &session{cfg: cfg, problem: problem, engine: engine, logger: logger}, nil
}

// buildKernel prefers the kernel stored in the problem file
func buildKernel(cfg *config.Config, override *models.KernelSpec) (*covariance.Matern, error) {
	name, rng, sd := cfg.Kernel.Model, cfg.Kernel.Range, cfg.Kernel.MarginalSd
	if override != nil {
		name, rng, sd = override.Model, override.Range, override.MarginalSd
	}
	model, err := covariance.ParseModel(name)
	if err != nil {
		return nil, err
	}
	return covariance.NewMatern(model, rng, sd)
}

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/lawlerem/staRVe/pkg/config"
)

func runLogLik(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	ll, err := s.engine.LogLikelihood()
	if err != nil {
		return fmt.Errorf("log-likelihood failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loglik: %.*f\n", s.cfg.Output.Precision, ll)
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	start := time.Now()
	field, err := s.engine.Simulate()
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	s.logger.Debug("simulated field", "elapsed", time.Since(start))

	out := cmd.OutOrStdout()
	printVector(out, "field", field, s.cfg.Output.Precision)
	mean, sd := stat.MeanStdDev(field, nil)
	fmt.Fprintf(out, "mean: %.*f sd: %.*f\n", s.cfg.Output.Precision, mean, s.cfg.Output.Precision, sd)
	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	aux, err := s.problem.AuxLocations()
	if err != nil {
		return err
	}
	var nll float64
	if _, err := s.engine.Predict(aux, s.problem.Observed, &nll); err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "nll: %.*f\n", s.cfg.Output.Precision, nll)
	return nil
}

func runSimulateAux(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	aux, err := s.problem.AuxLocations()
	if err != nil {
		return err
	}
	values, err := s.engine.SimulateAux(aux)
	if err != nil {
		return fmt.Errorf("auxiliary simulation failed: %w", err)
	}
	printVector(cmd.OutOrStdout(), "auxiliary", values, s.cfg.Output.Precision)
	return nil
}

func runGradient(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	grad, err := s.engine.FieldGradient()
	if err != nil {
		return fmt.Errorf("gradient failed: %w", err)
	}
	printVector(cmd.OutOrStdout(), "gradient", grad, s.cfg.Output.Precision)
	return nil
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
	return nil
}

func printVector(w io.Writer, label string, values []float64, precision int) {
	fmt.Fprintf(w, "%s:\n", label)
	for i, v := range values {
		fmt.Fprintf(w, "  %d: %.*f\n", i, precision, v)
	}
}

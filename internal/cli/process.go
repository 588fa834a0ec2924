package cli

import (
	"context"
	"fmt"

	"github.com/scbrown/pct/internal/engine"
	"github.com/scbrown/pct/internal/history"
	"github.com/scbrown/pct/internal/model"
)

// operation transforms the cloud read from the input file into the cloud
// written to the output file.
type operation func(ctx context.Context, eng engine.Engine, in engine.Cloud) (engine.Cloud, error)

// process runs op on input and writes the result to output, then appends
// {input, output} to the history. The history is locked before the engine
// runs, so a corrupt history fails the command before any work is done, and
// a failed operation records nothing.
func process(ctx context.Context, input, output string, op operation) error {
	if err := history.CheckPath(input); err != nil {
		return err
	}

	s, err := openHistory(ctx, true)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer s.Close()

	eng := newEngine(cfg)
	defer eng.Close()

	cloud, err := eng.Read(ctx, input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	result, err := op(ctx, eng, cloud)
	if err != nil {
		return err
	}
	if err := eng.Write(ctx, result, output); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	if err := s.Append(model.NewRecord(input, output)); err != nil {
		return err
	}
	if err := s.Persist(ctx); err != nil {
		return err
	}
	logger.Info("wrote", "path", output)
	return nil
}

// checkPositive rejects zero and negative parameter values.
func checkPositive(name string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("--%s must be positive, got %v", name, v)
	}
	return nil
}

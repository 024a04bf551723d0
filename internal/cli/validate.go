package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/definition"
	"github.com/aretw0/tendril/pkg/workflows/codereview"
)

// Validate compiles each definition file against a scratch engine that
// knows the built-in tools and reports lint warnings to w. Files are
// checked independently; the returned error joins every failure.
func Validate(ctx context.Context, w io.Writer, paths ...string) error {
	var errs []error
	for _, path := range paths {
		warnings, err := validateFile(ctx, path)
		if err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(w, "✓ %s\n", path)
		for _, warn := range warnings {
			fmt.Fprintf(w, "  ! %s\n", warn)
		}
	}
	return errors.Join(errs...)
}

func validateFile(ctx context.Context, path string) ([]string, error) {
	def, err := definition.LoadFile(path)
	if err != nil {
		return nil, err
	}

	eng, err := tendril.New(tendril.WithLogger(logging.NewNop()))
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	if err := codereview.Register(eng.Tools()); err != nil {
		return nil, err
	}
	if err := eng.RegisterFunction("generate_report", codereview.GenerateReport); err != nil {
		return nil, err
	}
	return eng.CreateGraph(ctx, def)
}

// Command fibstream prints the Fibonacci sequence, one term per line, for
// as long as its reader keeps reading.
//
//	fibstream | head -n 20
//	fibstream --take 100 --mode sum
//	fibstream --interval 500ms --separator ,
//	fibstream --limit 50 --store terms.db && fibstream --mode replay --store terms.db
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lguimbarda/fibflow/flow"
	"github.com/lguimbarda/fibflow/flow/filter"
	"github.com/lguimbarda/fibflow/flow/flowerrors"
	"github.com/lguimbarda/fibflow/flow/observe"
	"github.com/lguimbarda/fibflow/flow/sequence"
	"github.com/lguimbarda/fibflow/flow/sink"
	"github.com/lguimbarda/fibflow/flow/timing"
	"github.com/lguimbarda/fibflow/flow/transform"
	"github.com/lguimbarda/fibflow/internal/config"
	"github.com/lguimbarda/fibflow/internal/logging"
	"github.com/lguimbarda/fibflow/internal/store"
	"github.com/lguimbarda/fibflow/internal/telemetry"
)

const service = "fibstream"

var version = "dev"

func main() {
	// A closed stdout must surface as EPIPE on write instead of killing
	// the process.
	signal.Ignore(syscall.SIGPIPE)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	switch {
	case errors.Is(err, pflag.ErrHelp):
	case err != nil:
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet(service, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.Flags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(fs, config.Options{})
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", service, err)
		return err
	}

	ctx, runID := logging.WithRun(ctx, logging.New(cfg.Log, stderr, service))
	log := zerolog.Ctx(ctx)

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, service, version)
	if err != nil {
		log.Error().Err(err).Msg("telemetry setup failed")
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	ctx, span := telemetry.StartSpan(ctx, "fibstream.run")
	span.SetAttributes(
		attribute.String("mode", cfg.Mode),
		attribute.Int64("limit", cfg.Limit),
		attribute.Int("take", cfg.Take),
		attribute.String("run_id", runID),
	)
	defer span.End()

	log.Debug().
		Str("mode", cfg.Mode).
		Int64("limit", cfg.Limit).
		Int("take", cfg.Take).
		Str("store", cfg.Store).
		Msg("starting")

	if err := execute(ctx, cfg, stdout); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Str("kind", flowerrors.Classify(err).String()).Msg("pipeline failed")
		return err
	}
	return nil
}

func execute(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	inst, err := observe.NewInstruments(telemetry.Meter(), service)
	if err != nil {
		return err
	}

	var db *sql.DB
	if cfg.Store != "" {
		if db, err = store.Open(cfg.Store); err != nil {
			return err
		}
		defer db.Close()
	}

	var terms flow.Stream[*big.Int]
	if cfg.Mode == config.ModeReplay {
		terms = store.Terms(db)
	} else {
		terms = flow.Fibonacci(limit(cfg.Limit))
		if db != nil {
			if err := store.Reset(db); err != nil {
				return err
			}
			terms = store.Checkpoint(db).Apply(terms)
		}
	}
	terms = observe.Instrument[*big.Int](inst, "fibonacci").Apply(terms)

	if cfg.Mode == config.ModeSum {
		return sum(ctx, terms, cfg.Take, stdout)
	}
	return forward(ctx, terms, cfg, stdout)
}

func limit(n int64) sequence.Limit {
	if n < 0 {
		return sequence.Unbounded()
	}
	return sequence.Count(uint64(n))
}

func forward(ctx context.Context, terms flow.Stream[*big.Int], cfg *config.Config, stdout io.Writer) error {
	if cfg.Take >= 0 {
		terms = filter.Take[*big.Int](cfg.Take).Apply(terms)
	}
	if cfg.Interval > 0 {
		terms = timing.Pace[*big.Int](cfg.Interval).Apply(terms)
	}
	text := transform.Decimal().Apply(terms)
	if cfg.Separator != "" {
		text = transform.Intersperse(cfg.Separator).Apply(text)
	}

	report, err := sink.Forward(ctx, text, stdout, func(s string) string { return s })
	zerolog.Ctx(ctx).Debug().
		Uint64("delivered", report.Delivered).
		Str("outcome", report.Outcome.String()).
		Msg("forwarding finished")
	return err
}

func sum(ctx context.Context, terms flow.Stream[*big.Int], take int, stdout io.Writer) error {
	future := sink.Accumulate(ctx, terms, take, new(big.Int), func(acc, v *big.Int) (*big.Int, error) {
		return new(big.Int).Add(acc, v), nil
	})
	total, err := future.Await(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, total.String())
	return err
}

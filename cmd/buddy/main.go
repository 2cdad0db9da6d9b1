// Command buddy browses trips and maintains review scores against a running
// travel buddy backend.
//
//	buddy discover [-interests a,b] [-location L] [-start D] [-end D] [-q K] [-sort M]
//	buddy rescore [-workers N]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"backend-travelbuddy/internal/client"
	"backend-travelbuddy/internal/config"
	"backend-travelbuddy/internal/discovery"
	"backend-travelbuddy/internal/logging"
	"backend-travelbuddy/internal/model"
	"backend-travelbuddy/internal/reviewscore"
)

// Backend is what the commands need from the remote API.
type Backend interface {
	Trips(ctx context.Context) ([]model.Trip, error)
	UserTrips(ctx context.Context, email string) ([]model.UserTrip, error)
	Snapshot(ctx context.Context) (reviewscore.Snapshot, error)
	PutUser(ctx context.Context, user model.User) error
}

var newBackend = func(cfg config.Config) Backend {
	return client.New(cfg.BackendURL, client.Session{Token: cfg.BackendToken, Email: cfg.BackendEmail})
}

var loadConfig = config.Load

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cfg := loadConfig()
	logger := logging.New(stderr, cfg.LogLevel)
	backend := newBackend(cfg)

	var err error
	switch args[0] {
	case "discover":
		err = discover(ctx, backend, cfg, args[1:], stdout, stderr)
	case "rescore":
		err = rescore(ctx, backend, cfg, logger, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	var usageErr usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &usageErr):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		logger.Error(args[0]+" failed", "error", err)
		return 1
	}
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  buddy discover [-interests a,b] [-location L] [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-q keyword] [-sort mode]")
	fmt.Fprintln(w, "  buddy rescore [-workers N]")
}

func discover(ctx context.Context, backend Backend, cfg config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(stderr)
	interests := fs.String("interests", "", "comma separated interest ids, any match")
	location := fs.String("location", "", "exact location")
	start := fs.String("start", "", "range start, YYYY-MM-DD")
	end := fs.String("end", "", "range end, YYYY-MM-DD")
	keyword := fs.String("q", "", "case-insensitive keyword in location")
	sortMode := fs.String("sort", "", "startDateAsc, startDateDesc, durationAsc or durationDesc")
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}

	var (
		f   discovery.Filters
		err error
	)
	for _, id := range strings.Split(*interests, ",") {
		if id = strings.TrimSpace(id); id != "" {
			f.Interests = append(f.Interests, id)
		}
	}
	f.Location = *location
	f.Keyword = *keyword
	if f.StartDate, err = model.ParseDate(*start); err != nil {
		return usageError{fmt.Errorf("invalid -start: %w", err)}
	}
	if f.EndDate, err = model.ParseDate(*end); err != nil {
		return usageError{fmt.Errorf("invalid -end: %w", err)}
	}
	mode, err := discovery.ParseSortMode(*sortMode)
	if err != nil {
		return usageError{err}
	}

	trips, err := backend.Trips(ctx)
	if err != nil {
		return fmt.Errorf("fetch trips: %w", err)
	}
	statuses := map[string]model.UserTripStatus{}
	if cfg.BackendEmail != "" {
		userTrips, err := backend.UserTrips(ctx, cfg.BackendEmail)
		if err != nil {
			return fmt.Errorf("fetch user trips: %w", err)
		}
		statuses = discovery.JoinStatuses(userTrips)
	}

	visible := discovery.VisibleTrips(trips, f, mode)
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLOCATION\tSTART\tEND\tDAYS\tSTATUS\tINTERESTS")
	for _, t := range visible {
		names := make([]string, 0, len(t.Interests))
		for _, in := range t.Interests {
			names = append(names, in.Name)
		}
		status := string(statuses[t.ID])
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			t.ID, t.Location,
			t.StartDate.Format(model.DateLayout), t.EndDate.Format(model.DateLayout),
			t.DurationDays(), status, strings.Join(names, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d of %d trips\n", len(visible), len(trips))
	return nil
}

func rescore(ctx context.Context, backend Backend, cfg config.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("rescore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	workers := fs.Int("workers", cfg.ScoreWorkers, "concurrent user updates")
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}

	agg := reviewscore.NewAggregator(backend, *workers, logger)
	report, err := agg.Refresh(ctx, backend.Snapshot)

	fmt.Fprintf(stdout, "users: %d  updated: %d  failed: %d  orphaned reviews: %d\n",
		report.Users, report.Updated, len(report.Failures), report.Orphaned)
	for _, f := range report.Failures {
		fmt.Fprintf(stdout, "  %s: %s\n", f.UserID, f.Err)
	}
	return err
}

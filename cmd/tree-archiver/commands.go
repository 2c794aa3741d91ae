package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"

	"github.com/raoulx24/tree-archiver/internal/daemon"
	"github.com/raoulx24/tree-archiver/internal/fs"
	"github.com/raoulx24/tree-archiver/internal/logsink"
	"github.com/raoulx24/tree-archiver/internal/registry"
	"github.com/raoulx24/tree-archiver/internal/strategy"
)

// runJob starts one job, prints its progress and waits for the outcome.
// Cancelling ctx cancels the run.
func runJob(ctx context.Context, d *daemon.Daemon, args []string) error {
	if len(args) != 1 {
		return errors.New("run needs exactly one job name")
	}
	name := args[0]
	reg := d.Registry()
	defer reg.Close()

	done, err := reg.Start(ctx, name, func(name string, p int) {
		fmt.Fprintf(os.Stderr, "\r%s: %3d%%", name, p)
	})
	if err != nil {
		return errors.Trace(err)
	}
	<-done
	fmt.Fprintln(os.Stderr)

	job, err := reg.GetJob(name)
	if err != nil {
		return errors.Trace(err)
	}
	return report(os.Stdout, job)
}

func report(w io.Writer, job registry.Job) error {
	switch job.Status {
	case registry.StatusCompleted:
		fmt.Fprintf(w, "%s: completed in %s\n", job.Name, job.LastBackup.Sub(job.StartedAt).Round(time.Millisecond))
		return nil
	case registry.StatusCancelled:
		return errors.Errorf("%s: cancelled at %d%%", job.Name, job.Progress)
	default:
		return errors.Errorf("%s: %s: %s", job.Name, job.Status, job.LastError)
	}
}

// listJobs prints the configured jobs with the time of the last full
// backup found at each destination.
func listJobs(d *daemon.Daemon, w io.Writer) error {
	cfg := d.Config()
	filesystem := fs.New()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTRATEGY\tSCHEDULE\tSOURCE\tDESTINATION\tLAST FULL")
	for _, j := range cfg.Jobs {
		last := "never"
		ts, ok, err := strategy.ReadMarker(filesystem, j.Destination)
		switch {
		case err != nil:
			last = "unreadable"
		case ok:
			last = humanize.Time(ts)
		}
		schedule := j.Schedule
		if schedule == "" {
			schedule = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", j.Name, j.Strategy, schedule, j.Source, j.Destination, last)
	}
	return tw.Flush()
}

func printLogs(d *daemon.Daemon, args []string, w io.Writer) error {
	fset := flag.NewFlagSet("logs", flag.ContinueOnError)
	level := fset.String("level", "", "only entries of this level (debug, info, warn, error)")
	since := fset.Duration("since", 0, "only entries newer than this, e.g. 24h")
	if err := fset.Parse(args); err != nil {
		return errors.Trace(err)
	}

	filter := logsink.Filter{Level: logsink.Level(strings.ToUpper(*level))}
	if *since > 0 {
		filter.Start = time.Now().Add(-*since)
	}
	entries, err := d.Sink().ReadEntries(filter)
	if err != nil {
		return errors.Annotate(err, "reading log entries")
	}

	for _, e := range entries {
		fmt.Fprintf(w, "%s %-5s %s: %s", e.Time.Local().Format(time.DateTime), e.Level, e.Source, e.Message)
		if e.Job != "" && e.Outcome != "ok" {
			fmt.Fprintf(w, " [%s]", e.Outcome)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func showGate(ctx context.Context, d *daemon.Daemon, w io.Writer) error {
	g := d.Gate()
	priority, err := g.RunningPriority(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	blocking, err := g.RunningBlocking(ctx)
	if err != nil {
		return errors.Trace(err)
	}

	fmt.Fprintf(w, "priority (watched %d): %s\n", len(g.Priority()), orNone(priority))
	fmt.Fprintf(w, "blocking (watched %d): %s\n", len(g.Blocking()), orNone(blocking))
	return nil
}

func orNone(names []string) string {
	if len(names) == 0 {
		return "none running"
	}
	return strings.Join(names, ", ")
}

package migrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"custodian-migrator/logger"
	"custodian-migrator/migrator/applier"
	"custodian-migrator/migrator/errors"
	"custodian-migrator/migrator/metrics"
	"custodian-migrator/migrator/source"

	"github.com/fatih/structs"
)

//Entry is the outcome of one migration file.
type Entry struct {
	File   source.File
	Result *applier.Result
}

type Report struct {
	Pattern string
	Entries []Entry
	//Set when a rejected record stopped the run
	Aborted bool
}

func (r *Report) count(outcome applier.Outcome) int {
	count := 0
	for _, entry := range r.Entries {
		if entry.Result.Outcome == outcome {
			count++
		}
	}
	return count
}

func (r *Report) Applied() int { return r.count(applier.Applied) }
func (r *Report) Skipped() int { return r.count(applier.Skipped) }
func (r *Report) Failed() int  { return r.count(applier.Failed) }

//ExitCode is 0 when every migration was applied or skipped, 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Aborted || r.Failed() > 0 {
		return 1
	}
	return 0
}

type Summary struct {
	Pattern  string `structs:"pattern"`
	Total    int    `structs:"total"`
	Applied  int    `structs:"applied"`
	Skipped  int    `structs:"skipped"`
	Failed   int    `structs:"failed"`
	Aborted  bool   `structs:"aborted"`
	Duration string `structs:"duration"`
}

func (r *Report) Summary(duration time.Duration) Summary {
	return Summary{
		Pattern:  r.Pattern,
		Total:    len(r.Entries),
		Applied:  r.Applied(),
		Skipped:  r.Skipped(),
		Failed:   r.Failed(),
		Aborted:  r.Aborted,
		Duration: duration.String(),
	}
}

//Runner applies the migration files of a pattern one after another and writes a status
//line per file to out.
type Runner struct {
	applier  *applier.Applier
	out      io.Writer
	verbose  bool
	recorder *metrics.Recorder
}

func NewRunner(migrationApplier *applier.Applier, out io.Writer, verbose bool, recorder *metrics.Recorder) *Runner {
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}
	return &Runner{applier: migrationApplier, out: out, verbose: verbose, recorder: recorder}
}

//Run lists the migrations of the pattern and applies them in order. Wrong file names fail
//the run before anything is sent. A failed migration does not stop the run, a rejected
//record does: the report is marked aborted and the error is returned.
func (r *Runner) Run(ctx context.Context, pattern string) (*Report, error) {
	migrationSource := source.New(pattern)
	files, err := migrationSource.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		logger.Warn("No migrations found for '%s'", pattern)
	}

	report := &Report{Pattern: migrationSource.Pattern()}
	started := time.Now()
	defer func() {
		duration := time.Since(started)
		r.recorder.ObserveRun(duration)
		logger.WithFields(structs.Map(report.Summary(duration))).Info("Migration run finished")
	}()

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			return report, errors.NewTransportError(err, "Migration run interrupted before '%s'", file.Name)
		}

		migrationDescription, err := migrationSource.Load(file)
		if err != nil {
			r.report(report, file, &applier.Result{Outcome: applier.Failed, Err: err})
			continue
		}

		result, err := r.applier.Apply(ctx, migrationDescription)
		r.report(report, file, result)
		if err != nil {
			report.Aborted = true
			logger.Error("Migration run aborted at '%s': %s", file.Name, err.Error())
			return report, err
		}
	}
	return report, nil
}

func (r *Runner) report(report *Report, file source.File, result *applier.Result) {
	report.Entries = append(report.Entries, Entry{File: file, Result: result})
	r.recorder.Descriptor(result.Outcome.String())

	for _, recordResult := range result.Records {
		r.recorder.Record(recordResult.Outcome.String())
		if r.verbose && recordResult.Response != nil {
			fmt.Fprintln(r.out, recordResult.Response.String())
		}
		switch recordResult.Outcome {
		case applier.Uploaded:
			fmt.Fprintf(r.out, "Record %s uploaded.\n", recordResult)
		case applier.Duplicate:
			fmt.Fprintf(r.out, "Record %s is already uploaded.\n", recordResult)
		default:
			fmt.Fprintf(r.out, "Failed to upload record %s.\n", recordResult)
		}
	}

	if r.verbose && result.Response != nil {
		fmt.Fprintln(r.out, result.Response.String())
	}
	switch result.Outcome {
	case applier.Applied:
		fmt.Fprintf(r.out, "Migration %s applied.\n", file.Name)
	case applier.Skipped:
		fmt.Fprintf(r.out, "Migration %s is already applied. Skipping.\n", file.Name)
	default:
		fmt.Fprintf(r.out, "Failed to apply migration %s.\n", file.Name)
		if result.Err != nil {
			logger.Error("Migration '%s' failed: %s", file.Name, result.Err.Error())
		}
	}
}

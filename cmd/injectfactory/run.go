package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/xraph/injectfactory"
	"github.com/xraph/injectfactory/config"
	"github.com/xraph/injectfactory/errors"
	"github.com/xraph/injectfactory/logger"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

const usage = `Usage: injectfactory [flags] <command> <file>

Commands:
  validate   check a destination file
  describe   print the resolved settings of every destination
  version    print the version

Flags:
`

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("injectfactory", flag.ContinueOnError)
	fs.SetOutput(stderr)
	noColor := fs.Bool("no-color", os.Getenv("NO_COLOR") != "", "disable colored output")
	logLevel := fs.String("log-level", "warn", "diagnostic log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "console", "diagnostic log format (console, json)")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *noColor {
		color.NoColor = true
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}

	switch rest[0] {
	case "version":
		fmt.Fprintf(stdout, "injectfactory %s (%s)\n", version, commit)
		return 0
	case "validate", "describe":
		if len(rest) != 2 {
			fs.Usage()
			return 2
		}
	default:
		fmt.Fprintf(stderr, "%s unknown command %q\n", red("error:"), rest[0])
		fs.Usage()
		return 2
	}

	log := logger.NewLogger(logger.LoggingConfig{
		Level:  *logLevel,
		Format: *logFormat,
		Color:  !color.NoColor,
		Output: stderr,
	}).Named("injectfactory")
	defer func() { _ = log.Sync() }()

	file, err := config.LoadFile(rest[1])
	if err != nil {
		log.Debug("destination file not loaded", logger.String("path", rest[1]), logger.Error(err))
		printError(stderr, "", err)
		return 1
	}
	log.Info("destination file loaded",
		logger.String("path", rest[1]),
		logger.Int("destinations", len(file.Destinations)),
	)

	report := inspect(file, log)

	if rest[0] == "describe" {
		describe(stdout, report)
	}

	return printProblems(stdout, stderr, rest[1], report)
}

type entry struct {
	id       string
	settings injectfactory.Settings
	err      error
}

type report struct {
	entries  []entry
	fileErr  error
	warnings []string
}

// inspect resolves every destination without building anything.
func inspect(file *config.File, log logger.Logger) report {
	r := report{fileErr: file.Validate()}

	owners := make(map[string]entry)
	for _, d := range file.Destinations {
		s, err := injectfactory.ResolveSettings(d.ID, d.Properties)
		e := entry{id: d.ID, settings: s, err: err}
		r.entries = append(r.entries, e)

		if err == nil {
			log.Debug("destination resolved",
				logger.DestinationID(d.ID),
				logger.Source(s.Source),
				logger.Scope(s.Scope.String()),
				logger.AttributeID(s.AttributeID),
			)
		}

		if err != nil || s.Scope != injectfactory.ScopeApplication {
			continue
		}

		if prev, ok := owners[s.AttributeID]; ok && prev.settings.Source != s.Source {
			r.warnings = append(r.warnings, fmt.Sprintf(
				"attribute id %q is shared by %s (%s) and %s (%s); the second will fail with an incompatible type",
				s.AttributeID, prev.id, prev.settings.Source, d.ID, s.Source))
			continue
		}
		owners[s.AttributeID] = e
	}

	return r
}

func describe(w io.Writer, r report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", bold("ID"), bold("SOURCE"), bold("SCOPE"), bold("ATTRIBUTE ID"))

	for _, e := range r.entries {
		if e.err != nil {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.id, gray("-"), red("invalid"), gray("-"))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.id, e.settings.Source, e.settings.Scope, e.settings.AttributeID)
	}

	_ = tw.Flush()
}

func printProblems(stdout, stderr io.Writer, path string, r report) int {
	failed := r.fileErr != nil
	if r.fileErr != nil {
		printError(stderr, "", r.fileErr)
	}

	// Validate already reports what ResolveSettings rejects; only print
	// entry errors it did not cover.
	if r.fileErr == nil {
		for _, e := range r.entries {
			if e.err != nil {
				failed = true
				printError(stderr, e.id+": ", e.err)
			}
		}
	}

	for _, w := range r.warnings {
		fmt.Fprintf(stderr, "%s %s\n", yellow("warning:"), w)
	}

	if failed {
		return 1
	}

	fmt.Fprintf(stdout, "%s %s: %d destination(s)\n", green("ok"), path, len(r.entries))
	return 0
}

// printError writes one line per joined error, tagged with its code.
func printError(w io.Writer, prefix string, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			printError(w, prefix, e)
		}
		return
	}

	if code := errors.CodeOf(err); code != "" {
		fmt.Fprintf(w, "%s %s%v %s\n", red("error:"), prefix, err, gray("["+code+"]"))
		return
	}
	fmt.Fprintf(w, "%s %s%v\n", red("error:"), prefix, err)
}

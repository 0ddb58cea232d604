// Command touch-plot replays a recorded touch session, draws every finger
// trail on the logical stage and prints per-finger speed statistics.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"
	_ "time/tzdata"

	"github.com/banshee-data/multitouch/internal/monitor"
	"github.com/banshee-data/multitouch/internal/recorder"
	"github.com/banshee-data/multitouch/internal/security"
	"github.com/banshee-data/multitouch/internal/units"
)

// Config holds the command line options.
type Config struct {
	DBPath    string
	SessionID string
	Output    string
	Units     string
	Timezone  string
	List      bool
	JSON      bool
}

func parseFlags(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("touch-plot", flag.ContinueOnError)
	fs.StringVar(&cfg.DBPath, "db", "touch_sessions.db", "Session database path")
	fs.StringVar(&cfg.SessionID, "session", "", "Session id to plot (defaults to the newest)")
	fs.StringVar(&cfg.Output, "out", "", "Output image path (.png, .svg or .pdf); defaults to <label>_<session>.png")
	fs.StringVar(&cfg.Units, "units", units.Stage, "Speed units ("+units.GetValidUnitsString()+")")
	fs.StringVar(&cfg.Timezone, "tz", "UTC", "Timezone for session start times")
	fs.BoolVar(&cfg.List, "list", false, "List recorded sessions and exit")
	fs.BoolVar(&cfg.JSON, "json", false, "Print statistics as JSON")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if !units.IsValid(cfg.Units) {
		return Config{}, fmt.Errorf("invalid -units %q: must be one of %s", cfg.Units, units.GetValidUnitsString())
	}
	if !units.IsTimezoneValid(cfg.Timezone) {
		return Config{}, fmt.Errorf("invalid -tz %q", cfg.Timezone)
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2)
	}
	if err := run(cfg, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(cfg Config, out io.Writer) error {
	store, err := recorder.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.List {
		return listSessions(store, cfg.Timezone, out)
	}

	sess, err := pickSession(store, cfg.SessionID)
	if err != nil {
		return err
	}
	frames, err := store.Frames(sess.ID)
	if err != nil {
		return err
	}

	summaries, trails := monitor.Summarize(frames, sess.Bounds)
	for i := range summaries {
		s := &summaries[i]
		s.MeanSpeed = units.ConvertSpeed(s.MeanSpeed, sess.Bounds, cfg.Units)
		s.StdSpeed = units.ConvertSpeed(s.StdSpeed, sess.Bounds, cfg.Units)
		s.MaxSpeed = units.ConvertSpeed(s.MaxSpeed, sess.Bounds, cfg.Units)
	}

	output := cfg.Output
	if output == "" {
		output = security.PlotFilename(sess.Label, sess.ID, ".png")
	}
	title := sess.Label
	if title == "" {
		title = sess.ID
	}
	if err := monitor.PlotTrails(trails, sess.Bounds, title, output); err != nil {
		return err
	}

	if cfg.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"session": sess,
			"plot":    output,
			"units":   cfg.Units,
			"fingers": summaries,
		})
	}

	fmt.Fprintf(out, "session %s (%d frames) -> %s\n", sess.ID, len(frames), filepath.Clean(output))
	fmt.Fprintf(out, "speeds in %s/s\n", cfg.Units)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINGER\tID\tSAMPLES\tMEAN\tSTD\tMAX\tDURATION")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.1f\t%.1f\t%.1f\t%.2fs\n",
			s.Slot+1, s.Identifier, s.Samples, s.MeanSpeed, s.StdSpeed, s.MaxSpeed, s.Duration)
	}
	return tw.Flush()
}

func pickSession(store *recorder.Store, id string) (recorder.Session, error) {
	if id != "" {
		return store.Session(id)
	}
	sessions, err := store.Sessions()
	if err != nil {
		return recorder.Session{}, err
	}
	if len(sessions) == 0 {
		return recorder.Session{}, fmt.Errorf("no sessions recorded in %s", store.Path())
	}
	return sessions[0], nil
}

func listSessions(store *recorder.Store, tz string, out io.Writer) error {
	sessions, err := store.Sessions()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tSTARTED\tFRAMES")
	for _, s := range sessions {
		started, err := units.ConvertTime(s.StartedAt, tz)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.ID, s.Label, started.Format("2006-01-02 15:04:05 MST"), s.Frames)
	}
	return tw.Flush()
}

package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"
)

// Formatter renders command results for a terminal.
type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Active(active []ActiveCapture, now time.Time) {
	if len(active) == 0 {
		f.Info("Not recording anything")
		return
	}
	tw := tabwriter.NewWriter(f.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tFILE\tFOR")
	for _, a := range active {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Channel, a.File, formatDuration(now.Sub(a.StartedAt)))
	}
	tw.Flush()
}

func (f *Formatter) Recordings(recs map[string][]Recording) {
	channels := make([]string, 0, len(recs))
	for ch, list := range recs {
		if len(list) > 0 {
			channels = append(channels, ch)
		}
	}
	if len(channels) == 0 {
		f.Info("No recordings found")
		return
	}
	sort.Strings(channels)

	tw := tabwriter.NewWriter(f.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tFILE\tSIZE (MB)\tSTATE")
	for _, ch := range channels {
		for _, r := range recs[ch] {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", ch, r.Path, r.SizeMB, recordingState(r))
		}
	}
	tw.Flush()
}

func (f *Formatter) Loop(autoProcess bool, stats LoopStats) {
	state := "off"
	if autoProcess {
		state = "on"
	}
	running := "stopped"
	if stats.Running {
		running = "running"
	}
	fmt.Fprintf(f.w, "Auto-process: %s (background loop %s, transcodes %d/%d)\n", state, running, stats.Transcodes, stats.MaxTranscodes)
}

func recordingState(r Recording) string {
	switch {
	case r.Capturing:
		return "recording"
	case r.Processed:
		return "processed"
	default:
		return "raw"
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

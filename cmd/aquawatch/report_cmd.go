package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"aquawatch/internal/report"
)

func reportLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TZ %q: %w", tz, err)
	}
	return loc, nil
}

func (a *app) reportCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", string(report.ModeDate), "date or month")
	from := fs.String("from", "", "start date YYYY-MM-DD (month mode: YYYY-MM)")
	to := fs.String("to", "", "end date YYYY-MM-DD (month mode: YYYY-MM)")
	metricsFlag := fs.String("metrics", "", "comma separated metric keys (default all)")
	preset := fs.String("preset", "", "all, none or enabled; overrides -metrics")
	out := fs.String("o", ".", "output file or directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	selected := a.catalog.Keys()
	if *metricsFlag != "" {
		selected = strings.Split(*metricsFlag, ",")
	}
	if *preset != "" {
		var enabled []string
		if report.Preset(*preset) == report.PresetEnabled {
			s := a.newSession()
			_ = s.Load(ctx)
			enabled = s.EnabledMetricKeys()
		}
		selected = report.ApplyPreset(a.catalog, report.Preset(*preset), selected, enabled)
	}

	f, err := a.reports().Export(ctx, report.Request{
		Mode:    report.Mode(*mode),
		From:    *from,
		To:      *to,
		Metrics: selected,
	})
	if err != nil {
		return err
	}

	path := *out
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, f.Name)
	}
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintln(stdout, path)
	return nil
}

func (a *app) todayCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("today", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	today, err := a.today()
	if err != nil {
		return err
	}
	snap := today.Refresh(ctx)

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Fprintf(stdout, "source: %s  rows: %d  since: %s\n", snap.Source, snap.Rows, snap.From.Format(time.RFC3339))
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tSTATUS\tCURRENT\tMIN\tMAX\tAVG\tRECOMMENDED")
	for _, c := range snap.Cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%g..%g %s\n",
			c.Key, c.Status, reading(c.Current), reading(c.Min), reading(c.Max), reading(c.Avg),
			c.GoodMin, c.GoodMax, c.Unit)
	}
	return tw.Flush()
}

func reading(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *p)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"aquawatch/internal/service"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string     { return strings.Join(*l, ",") }
func (l *listFlag) Set(v string) error { *l = append(*l, v); return nil }

func (a *app) settingsCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}
	switch args[0] {
	case "show":
		return a.settingsShow(ctx, args[1:], stdout, stderr)
	case "save":
		return a.settingsSave(ctx, args[1:], stdout, stderr)
	case "toggle":
		return a.settingsToggle(ctx, args[1:], stdout)
	case "test":
		return a.settingsTest(ctx, args[1:], stdout, stderr)
	case "reset":
		return a.settingsReset(ctx, stdout)
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("%w: unknown settings command %q", errUsage, args[0])
	}
}

func (a *app) settingsShow(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := a.newSession()
	_ = s.Load(ctx)
	v := s.Snapshot()
	recipients := s.Baseline().Recipients

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			service.View
			Recipients []string `json:"recipients"`
		}{v, recipients})
	}
	printView(stdout, v, recipients)
	return nil
}

func printView(w io.Writer, v service.View, recipients []string) {
	device := v.DeviceID
	if device == "" {
		device = "(global)"
	}
	fmt.Fprintf(w, "contract: %s  device: %s\n", v.Contract, device)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tENABLED\tMIN\tMAX\tRECOMMENDED")
	for _, m := range v.Metrics {
		enabled := "off"
		if m.Enabled {
			enabled = "on"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g..%g %s\n", m.Key, enabled, bound(m.Min), bound(m.Max), m.GoodMin, m.GoodMax, m.Unit)
	}
	_ = tw.Flush()

	if len(recipients) == 0 {
		fmt.Fprintln(w, "recipients: (none)")
	} else {
		fmt.Fprintf(w, "recipients: %s\n", strings.Join(recipients, ", "))
	}
	if v.Notice != nil {
		fmt.Fprintf(w, "%s: %s\n", v.Notice.Level, v.Notice.Message)
	}
}

func bound(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// parseBound blank leaves the bound alone, anything unparsable becomes NaN and
// fails validation on save.
func parseBound(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v = math.NaN()
	}
	return &v
}

// applySet applies KEY=MIN:MAX, either bound may be blank.
func applySet(s *service.SettingsSession, expr string) error {
	key, bounds, ok := strings.Cut(expr, "=")
	if !ok {
		return fmt.Errorf("%w: -set expects KEY=MIN:MAX, got %q", errUsage, expr)
	}
	lo, hi, ok := strings.Cut(bounds, ":")
	if !ok {
		return fmt.Errorf("%w: -set expects KEY=MIN:MAX, got %q", errUsage, expr)
	}
	return s.UpdateMetric(strings.TrimSpace(key), service.MetricPatch{Min: parseBound(lo), Max: parseBound(hi)})
}

func (a *app) settingsSave(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("settings save", flag.ContinueOnError)
	fs.SetOutput(stderr)
	recipients := fs.String("recipients", "", "recipient e-mails to add, separated by , ; or spaces")
	var sets, enable, disable listFlag
	fs.Var(&sets, "set", "KEY=MIN:MAX threshold edit (repeatable)")
	fs.Var(&enable, "enable", "enable alerts for KEY (repeatable)")
	fs.Var(&disable, "disable", "disable alerts for KEY (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := a.newSession()
	_ = s.Load(ctx)
	for _, expr := range sets {
		if err := applySet(s, expr); err != nil {
			return err
		}
	}
	on, off := true, false
	for _, key := range enable {
		if err := s.UpdateMetric(key, service.MetricPatch{Enabled: &on}); err != nil {
			return err
		}
	}
	for _, key := range disable {
		if err := s.UpdateMetric(key, service.MetricPatch{Enabled: &off}); err != nil {
			return err
		}
	}
	s.SetRecipientsInput(*recipients)

	err := s.Save(ctx)
	return a.finish(stdout, s, err)
}

// settingsToggle with the immediate-toggle policy the flip is persisted on its own;
// otherwise it is saved like any other edit.
func (a *app) settingsToggle(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
		return fmt.Errorf("%w: settings toggle KEY on|off", errUsage)
	}
	s := a.newSession()
	_ = s.Load(ctx)

	done, err := s.ToggleEnabled(ctx, args[0], args[1] == "on")
	if err != nil {
		return err
	}
	if err := <-done; err != nil {
		return a.finish(stdout, s, err)
	}
	if s.Snapshot().Dirty {
		return a.finish(stdout, s, s.Save(ctx))
	}
	fmt.Fprintf(stdout, "%s alerts %s\n", args[0], args[1])
	return nil
}

func (a *app) settingsTest(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("settings test", flag.ContinueOnError)
	fs.SetOutput(stderr)
	recipients := fs.String("recipients", "", "recipient e-mails, separated by , ; or spaces")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := a.newSession()
	_ = s.Load(ctx)
	s.SetRecipientsInput(*recipients)
	return a.finish(stdout, s, s.SendTest(ctx))
}

// settingsReset a local reset only changes memory, so it is saved right away.
func (a *app) settingsReset(ctx context.Context, stdout io.Writer) error {
	s := a.newSession()
	_ = s.Load(ctx)
	if err := s.Reset(ctx); err != nil {
		return a.finish(stdout, s, err)
	}
	if s.Snapshot().Dirty {
		if err := s.Save(ctx); err != nil {
			return a.finish(stdout, s, err)
		}
	}
	v := s.Snapshot()
	printView(stdout, v, s.Baseline().Recipients)
	return nil
}

// finish prints the session notice and returns err, preferring the notice text.
func (a *app) finish(stdout io.Writer, s *service.SettingsSession, err error) error {
	n := s.Notice()
	if err != nil {
		if n != nil && n.Level == service.NoticeError && n.Message != err.Error() {
			return fmt.Errorf("%s: %w", n.Message, err)
		}
		return err
	}
	if n != nil {
		fmt.Fprintln(stdout, n.Message)
	}
	return nil
}

package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/partyline/internal/commands/doctor"
	"github.com/hay-kot/partyline/internal/printer"
)

type DoctorCmd struct {
	flags  *Flags
	format string
	fix    bool
}

func NewDoctorCmd(flags *Flags) *DoctorCmd {
	return &DoctorCmd{flags: flags}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Check configuration and table health",
		UsageText:   "partyline doctor [options]",
		Description: "Validates the configuration and inspects the table file for misaligned or out-of-order records.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "fix",
				Usage:       "truncate a partial trailing record",
				Destination: &cmd.fix,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.config()

	checks := []doctor.Check{
		doctor.NewConfigCheck(cmd.flags.Config, cmd.flags.ConfigPath),
		doctor.NewTableCheck(cfg.Table.Paths, cfg.Table.FetchWindow, cmd.fix),
	}

	results := doctor.RunAll(ctx, checks)
	report := doctor.Summarize(results)

	var err error
	if cmd.format == "json" {
		err = writeDoctorJSON(c.Root().Writer, results, report)
	} else {
		writeDoctorText(printer.Ctx(ctx), results, report)
	}
	if err != nil {
		return err
	}

	if !report.Healthy() {
		return cli.Exit("", 1)
	}
	return nil
}

func writeDoctorJSON(w io.Writer, results []doctor.Result, report doctor.Report) error {
	out := struct {
		Healthy bool            `json:"healthy"`
		Summary doctor.Report   `json:"summary"`
		Checks  []doctor.Result `json:"checks"`
	}{
		Healthy: report.Healthy(),
		Summary: report,
		Checks:  results,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeDoctorText(p *printer.Printer, results []doctor.Result, report doctor.Report) {
	items := map[doctor.Status]func(label, detail string){
		doctor.StatusPass: p.CheckItem,
		doctor.StatusWarn: p.WarnItem,
		doctor.StatusFail: p.FailItem,
	}

	for _, result := range results {
		p.Section(result.Name)
		for _, item := range result.Items {
			items[item.Status](item.Label, item.Detail)
		}
		p.Printf("")
	}

	p.Printf("Summary: %d passed, %d warnings, %d failed", report.Passed, report.Warned, report.Failed)

	if report.Fixable > 0 {
		p.Infof("%d issue(s) can be repaired with 'partyline doctor --fix'", report.Fixable)
	}
}

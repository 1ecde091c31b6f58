// Command finplan-cli is a terminal front-end for the finance API. It drives
// the same page controllers and form reducers as the browser client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"finplan/internal/cli"
	"finplan/internal/config"
	"finplan/internal/core"
	"finplan/internal/form"
	"finplan/internal/insights"
	"finplan/internal/log"
	"finplan/internal/pages"
	"finplan/internal/records"
	"finplan/internal/remote"
	"finplan/internal/session"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	lvl, _ := log.ParseLevel(cfg.LogLevel)
	log.SetDefault(log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentCLI,
		Handler:   log.NewHandler(os.Stderr, cfg.LogFormat, lvl),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type app struct {
	client *remote.Client
	user   session.Identity
	out    io.Writer
	errOut io.Writer
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"session", "Show who the CLI acts for", runSession},
	{"setup", "Show the fixed income, budget goal and fixed expenses", runSetup},
	{"configure", "Save the fixed setup (-income, -goal, -fixed Category=amount ...)", runConfigure},
	{"add", "Record a variable expense", runAdd},
	{"list", "List recent variable expenses and their total", runList},
	{"delete", "Delete a variable expense by id", runDelete},
	{"insights", "Category breakdown and savings trend for a month", runInsights},
	{"dashboard", "Spending against income for every month", runDashboard},
	{"advice", "Ask the advisor about a month", runAdvice},
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "finplan-cli")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  finplan-cli [-api URL] [-email ADDRESS] <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.usage)
	}
	tw.Flush()
	fmt.Fprintln(w, "\nRun 'finplan-cli <command> -h' for the options of a command.")
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("finplan-cli", flag.ContinueOnError)
	global.SetOutput(stderr)
	apiURL := global.String("api", defaultAPIURL(cfg), "base URL of the finance API")
	email := global.String("email", "", "act for this user instead of asking the session service")
	timeout := global.Duration("timeout", 30*time.Second, "overall request timeout")
	global.Usage = func() { printUsage(stderr) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 2
	}
	if rest[0] == "help" {
		printUsage(stdout)
		return 0
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == rest[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", rest[0])
		printUsage(stderr)
		return 2
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	user, err := resolveUser(ctx, cfg, *email)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", pages.Message(err))
		return 1
	}
	a := &app{client: remote.New(*apiURL, nil), user: user, out: stdout, errOut: stderr}
	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "Error:", describe(err))
		return 1
	}
	return 0
}

func defaultAPIURL(cfg *config.Config) string {
	if cfg.RemoteAPIURL != "" {
		return cfg.RemoteAPIURL
	}
	return "http://localhost:" + cfg.Port
}

// resolveUser picks -email, then SESSION_DEV_EMAIL, then the session service.
func resolveUser(ctx context.Context, cfg *config.Config, email string) (session.Identity, error) {
	switch {
	case email != "":
		return session.Parse(email)
	case cfg.SessionDevEmail != "":
		return session.Parse(cfg.SessionDevEmail)
	case cfg.SessionURL != "":
		return session.NewClient(cfg.SessionURL, nil).Current(ctx)
	}
	return "", session.ErrNoSession
}

func describe(err error) string {
	var ve *form.ValidationError
	if errors.As(err, &ve) {
		names := make([]string, 0, len(ve.Fields))
		for name := range ve.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		var b strings.Builder
		b.WriteString("please fix the following fields")
		for _, name := range names {
			fmt.Fprintf(&b, "\n  %s: %s", name, ve.Fields[name])
		}
		return b.String()
	}
	return pages.Message(err)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func parseMonthFlag(raw string) (core.Month, error) {
	if raw == "" {
		return form.DefaultMonth, nil
	}
	return core.ParseMonth(raw)
}

func runSession(_ context.Context, a *app, _ []string) error {
	fmt.Fprintln(a.out, a.user)
	return nil
}

func runSetup(ctx context.Context, a *app, _ []string) error {
	page := pages.NewSettingsPage(a.client, a.user)
	if err := page.Load(ctx); err != nil {
		return err
	}
	st := page.State()
	if st.Status == pages.StatusSetupIncomplete {
		fmt.Fprintln(a.out, "No setup saved yet. Run 'finplan-cli configure' to create one.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Income\t%s\n", st.Form.Income)
	fmt.Fprintf(tw, "Budget goal\t%s\n", st.Form.BudgetGoal)
	for _, row := range st.Form.Rows {
		fmt.Fprintf(tw, "  %s\t%s\n", row.Category, row.Amount)
	}
	return tw.Flush()
}

// fixedRows collects repeated -fixed Category=amount flags.
type fixedRows []form.FixedRow

func (f *fixedRows) String() string { return fmt.Sprint(*f) }

func (f *fixedRows) Set(v string) error {
	cat, amount, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("want Category=amount, got %q", v)
	}
	*f = append(*f, form.FixedRow{Category: strings.TrimSpace(cat), Amount: strings.TrimSpace(amount)})
	return nil
}

func runConfigure(ctx context.Context, a *app, args []string) error {
	fs := a.flags("configure")
	income := fs.String("income", "", "monthly income")
	goal := fs.String("goal", "", "monthly savings goal")
	var rows fixedRows
	fs.Var(&rows, "fixed", "fixed expense as Category=amount; repeat for more, replaces existing rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	page := pages.NewSettingsPage(a.client, a.user)
	if err := page.Load(ctx); err != nil {
		return err
	}
	if *income != "" {
		page.Dispatch(form.SetIncome(*income))
	}
	if *goal != "" {
		page.Dispatch(form.SetBudgetGoal(*goal))
	}
	if len(rows) > 0 {
		for range page.State().Form.Rows {
			page.Dispatch(form.RemoveRow(0))
		}
		for i, row := range rows {
			if i > 0 {
				page.Dispatch(form.AddRow{})
			}
			page.Dispatch(form.SetRowCategory{Index: i, Value: row.Category})
			page.Dispatch(form.SetRowAmount{Index: i, Value: row.Amount})
		}
	}
	if err := page.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Setup saved.")
	return nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := a.flags("add")
	desc := fs.String("desc", "", "description")
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	category := fs.String("category", "", "one of: "+categoryList())
	month := fs.String("month", string(form.DefaultMonth), "month name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	page := pages.NewTrackerPage(a.client, a.user)
	page.Dispatch(form.SetDescription(*desc))
	page.Dispatch(form.SetAmount(*amount))
	page.Dispatch(form.SetCategory(*category))
	page.Dispatch(form.SetMonth(*month))
	if err := page.Submit(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Expense recorded. Total spent: %s\n", insights.FormatCurrency(page.Total()))
	return nil
}

func categoryList() string {
	names := make([]string, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := a.flags("list")
	n := fs.Int("n", pages.RecentLimit, "number of expenses to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	page := pages.NewTrackerPage(a.client, a.user)
	if err := page.Load(ctx); err != nil {
		return err
	}
	recent := page.Recent(*n)
	if len(recent) == 0 {
		fmt.Fprintln(a.out, "No expenses recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMONTH\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, e := range recent {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Month, e.Category.Label(), insights.FormatCurrency(e.Amount), e.Description)
	}
	fmt.Fprintf(tw, "\t\tTotal\t%s\t\n", insights.FormatCurrency(page.Total()))
	return tw.Flush()
}

func runDelete(ctx context.Context, a *app, args []string) error {
	fs := a.flags("delete")
	id := fs.String("id", "", "expense id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	if err := pages.NewTrackerPage(a.client, a.user).Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Expense deleted.")
	return nil
}

func runInsights(ctx context.Context, a *app, args []string) error {
	fs := a.flags("insights")
	monthFlag := fs.String("month", "", "month name (default March)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := parseMonthFlag(*monthFlag)
	if err != nil {
		return err
	}

	page := pages.NewInsightsPage(a.client, a.user)
	page.Load(ctx, page.Select(month))
	st := page.State()
	switch {
	case st.Status == pages.StatusSetupIncomplete:
		fmt.Fprintln(a.out, pages.Message(records.ErrSetupIncomplete))
		return nil
	case st.Snapshot == nil:
		if st.Err == nil {
			return errors.New("insights unavailable")
		}
		return st.Err
	}
	snap := st.Snapshot

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tincome %s\tfixed %s\tgoal %s\n", snap.Month,
		insights.FormatCurrency(snap.Income), insights.FormatCurrency(snap.FixedTotal), insights.FormatCurrency(snap.BudgetGoal))
	if !snap.HasBreakdown() {
		fmt.Fprintf(tw, "\nNo variable expenses in %s.\n", snap.Month)
	} else {
		fmt.Fprintln(tw, "\nCATEGORY\tAMOUNT\tSHARE")
		for _, sl := range snap.Slices {
			fmt.Fprintf(tw, "%s\t%s\t%d%%\n", sl.Label, insights.FormatCurrency(sl.Value), sl.Percent)
		}
	}
	fmt.Fprintln(tw, "\nMONTH\tSAVINGS")
	for _, p := range snap.Series {
		fmt.Fprintf(tw, "%s\t%s\n", p.Label, insights.FormatCurrency(p.Value))
	}
	return tw.Flush()
}

func runDashboard(ctx context.Context, a *app, _ []string) error {
	page := pages.NewDashboardPage(pages.FromRecords(a.client), a.user)
	if err := page.Load(ctx); err != nil && page.State().Status != pages.StatusSetupIncomplete {
		return err
	}
	st := page.State()
	if st.Status == pages.StatusSetupIncomplete {
		fmt.Fprintln(a.out, pages.Message(records.ErrSetupIncomplete))
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MONTH\tSPENT\tINCOME\tUSED\t")
	for _, s := range st.Statuses {
		note := ""
		if s.OverBudget {
			note = "over budget"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n", s.Month, insights.FormatCurrency(s.Spent), insights.FormatCurrency(s.Income), s.Percent, note)
	}
	return tw.Flush()
}

func runAdvice(ctx context.Context, a *app, args []string) error {
	fs := a.flags("advice")
	monthFlag := fs.String("month", "", "month name (default March)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := parseMonthFlag(*monthFlag)
	if err != nil {
		return err
	}
	text, err := a.client.Advice(ctx, a.user, month)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, text)
	return nil
}

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/spendlog/spendlog-go/internal/client"
	"github.com/spendlog/spendlog-go/internal/model"
)

const usage = `Usage: spendctl [-url <base>] [-token-file <path>] [-timeout <d>] <command> [flags]

Commands:
  register  -email <email> [-name <name>] [-password <password>]
  login     -email <email> [-password <password>]
  logout
  list      [-category <name>] [-summary]
  add       -description <text> -amount <n.nn> -category <name> [-date YYYY-MM-DD] [-notes <text>]
  edit      <id> [-description ...] [-amount ...] [-category ...] [-date ...] [-notes ...]
  rm        <id>
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("spendctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	defaultURL := os.Getenv("SPENDLOG_API_URL")
	if defaultURL == "" {
		defaultURL = client.DefaultBaseURL
	}
	baseURL := fs.String("url", defaultURL, "API base URL")
	tokenFile := fs.String("token-file", "", "Session token file (default: user config dir)")
	timeout := fs.Duration("timeout", client.DefaultTimeout, "Request timeout")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	path := *tokenFile
	if path == "" {
		var err error
		if path, err = client.DefaultTokenPath(); err != nil {
			return fmt.Errorf("locate token file: %w", err)
		}
	}

	c := client.New(*baseURL, client.WithTokenStore(client.NewFileStore(path)), client.WithTimeout(*timeout))
	ctx := context.Background()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	var err error
	switch cmd {
	case "register":
		err = register(ctx, c, rest, stdin, stdout, stderr)
	case "login":
		err = login(ctx, c, rest, stdin, stdout, stderr)
	case "logout":
		if err = c.Logout(); err == nil {
			fmt.Fprintln(stdout, "Logged out")
		}
	case "list":
		err = list(ctx, c, rest, stdout, stderr)
	case "add":
		err = add(ctx, c, rest, stdout, stderr)
	case "edit":
		err = edit(ctx, c, rest, stdout, stderr)
	case "rm":
		err = remove(ctx, c, rest, stdout)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	return friendly(err)
}

// friendly rewrites client errors into what a user should read.
func friendly(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, client.ErrTimeout):
		return client.ErrTimeout
	case errors.Is(err, client.ErrUnauthorized):
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message == "Invalid credentials" {
			return apiErr
		}
		return fmt.Errorf("session expired, please log in again")
	}
	return err
}

func register(ctx context.Context, c *client.Client, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Display name")
	password := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := passwordOrPrompt(*password, stdin, stdout)
	if err != nil {
		return err
	}

	resp, err := c.Register(ctx, *name, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Registered and logged in as %s\n", resp.User.Email)
	return nil
}

func login(ctx context.Context, c *client.Client, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := passwordOrPrompt(*password, stdin, stdout)
	if err != nil {
		return err
	}

	resp, err := c.Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Logged in as %s\n", resp.User.Email)
	return nil
}

func list(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	category := fs.String("category", "", "Only show this category")
	summary := fs.Bool("summary", false, "Print totals per category, average and highest")
	if err := fs.Parse(args); err != nil {
		return err
	}

	expenses, err := c.ListExpenses(ctx)
	if err != nil {
		return err
	}
	expenses = client.FilterCategory(expenses, *category)
	if len(expenses) == 0 {
		fmt.Fprintln(stdout, "No expenses")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAMOUNT\tCATEGORY\tDESCRIPTION\tID")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Date.Format(time.DateOnly), e.Amount, e.Category, e.Description, e.ID)
	}

	stats := client.Summarize(expenses)
	fmt.Fprintf(tw, "\t%s\tTOTAL\t\t\n", stats.Total)
	if err := tw.Flush(); err != nil {
		return err
	}
	if !*summary {
		return nil
	}

	fmt.Fprintln(stdout)
	tw = tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTOTAL")
	for _, ct := range stats.ByCategory {
		fmt.Fprintf(tw, "%s\t%s\n", ct.Category, ct.Total)
	}
	fmt.Fprintf(tw, "COUNT\t%d\n", stats.Count)
	fmt.Fprintf(tw, "AVERAGE\t%s\n", stats.Average)
	fmt.Fprintf(tw, "HIGHEST\t%s\n", stats.Highest)
	return tw.Flush()
}

// expenseFlags registers the editable fields on fs.
type expenseFlags struct {
	description, amount, category, date, notes *string
}

func newExpenseFlags(fs *flag.FlagSet, defaultDate string) expenseFlags {
	return expenseFlags{
		description: fs.String("description", "", "What the money was spent on"),
		amount:      fs.String("amount", "", "Amount, e.g. 42.50"),
		category:    fs.String("category", "", "Category label"),
		date:        fs.String("date", defaultDate, "Date as YYYY-MM-DD"),
		notes:       fs.String("notes", "", "Free-form notes"),
	}
}

func add(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := newExpenseFlags(fs, time.Now().Format(time.DateOnly))
	if err := fs.Parse(args); err != nil {
		return err
	}

	amount, err := model.ParseAmount(*f.amount)
	if err != nil {
		return err
	}
	date, err := model.ParseDate(*f.date)
	if err != nil {
		return err
	}

	req := model.CreateExpenseRequest{
		Description: f.description,
		Amount:      &amount,
		Category:    f.category,
		Date:        &model.Date{Time: date},
	}
	if *f.notes != "" {
		req.Notes = f.notes
	}

	e, err := c.CreateExpense(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Added %s (%s %s)\n", e.ID, e.Amount, e.Category)
	return nil
}

func edit(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("usage: spendctl edit <id> [flags]")
	}
	id := args[0]

	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := newExpenseFlags(fs, "")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var (
		req    model.UpdateExpenseRequest
		errSet error
	)
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "description":
			req.Description = f.description
		case "category":
			req.Category = f.category
		case "notes":
			req.Notes = f.notes
		case "amount":
			amount, err := model.ParseAmount(*f.amount)
			if err != nil {
				errSet = err
				return
			}
			req.Amount = &amount
		case "date":
			date, err := model.ParseDate(*f.date)
			if err != nil {
				errSet = err
				return
			}
			req.Date = &model.Date{Time: date}
		}
	})
	if errSet != nil {
		return errSet
	}

	e, err := c.UpdateExpense(ctx, id, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Updated %s (%s %s)\n", e.ID, e.Amount, e.Category)
	return nil
}

func remove(ctx context.Context, c *client.Client, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: spendctl rm <id>")
	}
	if err := c.DeleteExpense(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Deleted %s\n", args[0])
	return nil
}

func passwordOrPrompt(password string, stdin io.Reader, stdout io.Writer) (string, error) {
	if password != "" {
		return password, nil
	}

	fmt.Fprint(stdout, "Password: ")
	defer fmt.Fprintln(stdout)

	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

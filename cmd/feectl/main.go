// Command feectl is a terminal client for the departmental fee portal.
//
// Usage:
//
//	feectl login [-email addr]
//	feectl logout
//	feectl fees
//	feectl history
//	feectl pay <fee-id>
//	feectl stats
//	feectl fee-add -title t -type c -amount n -deadline YYYY-MM-DD [-installments n]
//	feectl fee-rm <fee-id>
//	feectl assign [-amount n] <fee-id> <student-id>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/mmynk/deptportal/internal/client"
	"github.com/mmynk/deptportal/internal/config"
	"github.com/mmynk/deptportal/internal/metrics"
	"github.com/mmynk/deptportal/internal/session"
	"github.com/mmynk/deptportal/pkg/logging"
)

const usage = `usage: feectl [-env file] <command> [args]

commands:
  login [-email addr]   sign in and remember the session
  logout                forget the stored session
  fees                  list your fees by category with totals
  history               list your payments
  pay <fee-id>          pay a fee by card
  stats                 department-wide statistics (admin)
  fee-add [flags]       create a fee definition (admin)
  fee-rm <fee-id>       delete a fee definition (admin)
  assign [-amount n] <fee-id> <student-id>
                        bill a fee to a student (admin)
`

var errUsage = errors.New("invalid usage")

// app carries everything a command needs.
type app struct {
	cfg      *config.Config
	sessions *session.FileStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	out      io.Writer
	prompt   *prompter
}

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feectl: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp(cfg, os.Stdin, os.Stdout, slog.Default())
	if err := a.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "feectl: %v\n", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config, in io.Reader, out io.Writer, logger *slog.Logger) *app {
	return &app{
		cfg:      cfg,
		sessions: session.NewFileStore(cfg.SessionFile),
		logger:   logger,
		metrics:  metrics.New(),
		out:      out,
		prompt:   newPrompter(in, out),
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		if err := a.sessions.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged out.")
		return nil
	case "fees":
		return a.fees(ctx)
	case "history":
		return a.history(ctx)
	case "pay":
		if len(rest) != 1 {
			return errUsage
		}
		return a.pay(ctx, rest[0])
	case "stats":
		return a.stats(ctx)
	case "fee-add":
		return a.feeAdd(ctx, rest)
	case "fee-rm":
		if len(rest) != 1 {
			return errUsage
		}
		return a.feeRemove(ctx, rest[0])
	case "assign":
		return a.assign(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// client returns a backend client for the stored session.
func (a *app) client() (*client.Client, error) {
	s, err := a.sessions.Load()
	if err != nil {
		return nil, err
	}
	if !s.Authenticated() {
		return nil, errors.New("not logged in; run feectl login")
	}
	return a.newClient(s), nil
}

func (a *app) newClient(s session.Session) *client.Client {
	return client.New(a.cfg.APIBaseURL, s,
		client.WithHTTPClient(&http.Client{Timeout: a.cfg.HTTPTimeout}),
		client.WithLogger(a.logger),
	)
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"
	ucli "github.com/urfave/cli/v2"

	"github.com/supermart/supermart/internal/inventory"
	"github.com/supermart/supermart/internal/users"
)

// Migrations is the schema migration surface.
type Migrations interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
	Close() error
}

// Jobs is the queue surface.
type Jobs interface {
	Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) ([]QueueStats, error)
	Close() error
}

// Ledger reports drift between product quantities and the stock ledger.
type Ledger interface {
	Reconcile(ctx context.Context) ([]inventory.Drift, error)
}

// Accounts creates users.
type Accounts interface {
	Create(ctx context.Context, actorID int64, input users.CreateInput) (users.User, error)
}

// KeyPurger drops expired idempotency keys.
type KeyPurger interface {
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Env opens the backends lazily so each command only touches what it needs.
type Env struct {
	Out            io.Writer
	OpenMigrations func(c *ucli.Context) (Migrations, error)
	OpenJobs       func(c *ucli.Context) (Jobs, error)
	OpenLedger     func(c *ucli.Context) (Ledger, func(), error)
	OpenAccounts   func(c *ucli.Context) (Accounts, func(), error)
	OpenKeys       func(c *ucli.Context) (KeyPurger, func(), error)
}

// NewApp builds the supermartctl command tree.
func NewApp(env Env) *ucli.App {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	return &ucli.App{
		Name:           "supermartctl",
		Usage:          "operate the supermart database and job queue",
		Writer:         env.Out,
		ErrWriter:      os.Stderr,
		ExitErrHandler: func(*ucli.Context, error) {},
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "dsn", Usage: "PostgreSQL DSN, overrides PG_DSN"},
			&ucli.StringFlag{Name: "redis", Usage: "Redis address, overrides REDIS_ADDR"},
		},
		Commands: []*ucli.Command{
			migrateCommand(env),
			jobsCommand(env),
			ledgerCommand(env),
			usersCommand(env),
			maintenanceCommand(env),
		},
	}
}

func migrateCommand(env Env) *ucli.Command {
	withMigrations := func(fn func(c *ucli.Context, m Migrations) error) ucli.ActionFunc {
		return func(c *ucli.Context) error {
			m, err := env.OpenMigrations(c)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()
			return fn(c, m)
		}
	}
	return &ucli.Command{
		Name:  "migrate",
		Usage: "apply or roll back schema migrations",
		Subcommands: []*ucli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: withMigrations(func(c *ucli.Context, m Migrations) error {
					if err := m.Up(); err != nil {
						return err
					}
					return printVersion(env.Out, m)
				}),
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []ucli.Flag{&ucli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"}},
				Action: withMigrations(func(c *ucli.Context, m Migrations) error {
					if err := m.Down(c.Int("steps")); err != nil {
						return err
					}
					return printVersion(env.Out, m)
				}),
			},
			{
				Name:  "version",
				Usage: "print the current schema version",
				Action: withMigrations(func(c *ucli.Context, m Migrations) error {
					return printVersion(env.Out, m)
				}),
			},
		},
	}
}

func printVersion(out io.Writer, m Migrations) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "schema version %d dirty=%t\n", v, dirty)
	return err
}

func jobsCommand(env Env) *ucli.Command {
	return &ucli.Command{
		Name:  "jobs",
		Usage: "inspect and trigger background jobs",
		Subcommands: []*ucli.Command{
			{
				Name:      "trigger",
				Usage:     "enqueue a job",
				ArgsUsage: "<inventory:reconcile>",
				Action: func(c *ucli.Context) error {
					if c.NArg() != 1 {
						return ucli.Exit("jobs trigger: exactly one job name required", 2)
					}
					j, err := env.OpenJobs(c)
					if err != nil {
						return err
					}
					defer func() { _ = j.Close() }()
					info, err := j.Trigger(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(env.Out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
					return err
				},
			},
			{
				Name:  "stats",
				Usage: "print queue statistics",
				Flags: []ucli.Flag{&ucli.BoolFlag{Name: "json"}},
				Action: func(c *ucli.Context) error {
					j, err := env.OpenJobs(c)
					if err != nil {
						return err
					}
					defer func() { _ = j.Close() }()
					stats, err := j.InspectQueue(c.Context)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return json.NewEncoder(env.Out).Encode(stats)
					}
					for _, q := range stats {
						if _, err := fmt.Fprintf(env.Out, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
							q.Queue, q.Pending, q.Active, q.Scheduled, q.Retry, q.Archived); err != nil {
							return err
						}
					}
					return nil
				},
			},
		},
	}
}

func ledgerCommand(env Env) *ucli.Command {
	return &ucli.Command{
		Name:  "ledger",
		Usage: "stock ledger maintenance",
		Subcommands: []*ucli.Command{
			{
				Name:  "reconcile",
				Usage: "report products whose quantity differs from their ledger sum",
				Flags: []ucli.Flag{
					&ucli.BoolFlag{Name: "json"},
					&ucli.BoolFlag{Name: "fail-on-drift", Usage: "exit with status 3 when drift is found"},
				},
				Action: func(c *ucli.Context) error {
					ledger, closeFn, err := env.OpenLedger(c)
					if err != nil {
						return err
					}
					defer closeFn()
					drifts, err := ledger.Reconcile(c.Context)
					if err != nil {
						return err
					}
					if err := writeDrifts(env.Out, drifts, c.Bool("json")); err != nil {
						return err
					}
					if len(drifts) > 0 && c.Bool("fail-on-drift") {
						return ucli.Exit(fmt.Sprintf("%d products drifted", len(drifts)), 3)
					}
					return nil
				},
			},
		},
	}
}

func writeDrifts(out io.Writer, drifts []inventory.Drift, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(out).Encode(map[string]any{"drift": drifts})
	}
	if len(drifts) == 0 {
		_, err := fmt.Fprintln(out, "ledger consistent")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tSKU\tQUANTITY\tLEDGER\tDIFF")
	for _, d := range drifts {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%+d\n", d.ProductID, d.SKU, d.Quantity, d.LedgerSum, d.Difference)
	}
	return tw.Flush()
}

func usersCommand(env Env) *ucli.Command {
	return &ucli.Command{
		Name:  "users",
		Usage: "manage accounts",
		Subcommands: []*ucli.Command{
			{
				Name:  "create",
				Usage: "create an account; the role is derived from the email unless given",
				Flags: []ucli.Flag{
					&ucli.StringFlag{Name: "email", Required: true},
					&ucli.StringFlag{Name: "username", Required: true},
					&ucli.StringFlag{Name: "role"},
					&ucli.StringFlag{Name: "phone"},
					&ucli.StringFlag{Name: "address"},
				},
				Action: func(c *ucli.Context) error {
					accounts, closeFn, err := env.OpenAccounts(c)
					if err != nil {
						return err
					}
					defer closeFn()
					u, err := accounts.Create(c.Context, 0, users.CreateInput{
						Email:    c.String("email"),
						Username: c.String("username"),
						Role:     c.String("role"),
						Phone:    c.String("phone"),
						Address:  c.String("address"),
					})
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(env.Out, "created user %d %s role=%s\n", u.ID, u.Email, u.Role)
					return err
				},
			},
		},
	}
}

func maintenanceCommand(env Env) *ucli.Command {
	return &ucli.Command{
		Name:  "maintenance",
		Usage: "housekeeping tasks",
		Subcommands: []*ucli.Command{
			{
				Name:  "purge-keys",
				Usage: "delete idempotency keys older than the retention window",
				Flags: []ucli.Flag{&ucli.DurationFlag{Name: "older-than", Value: 72 * time.Hour}},
				Action: func(c *ucli.Context) error {
					if c.Duration("older-than") <= 0 {
						return ucli.Exit("maintenance purge-keys: --older-than must be positive", 2)
					}
					keys, closeFn, err := env.OpenKeys(c)
					if err != nil {
						return err
					}
					defer closeFn()
					n, err := keys.Purge(c.Context, c.Duration("older-than"))
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(env.Out, "purged %d idempotency keys\n", n)
					return err
				},
			},
		},
	}
}

/* main.go
 * Contains the schema migration CLI. `otl-migrate migrate` applies the embedded schema, `otl-migrate status`
 * prints the applied and expected schema versions.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"otl-bot/api/store"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// migrator is the part of the store the CLI drives
type migrator interface {
	Migrate(ctx context.Context) error
	AppliedVersion(ctx context.Context) (int, error)
	Shutdown()
}

var _ migrator = (*store.Store)(nil)

type opener func(ctx context.Context, dsn string) (migrator, error)

func openStore(ctx context.Context, dsn string) (migrator, error) {
	return store.New(ctx, dsn, nil, nil)
}

func main() {
	if err := newApp(os.Stdout, openStore).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdout io.Writer, open opener) *cli.App {
	withStore := func(fn func(c *cli.Context, m migrator) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			m, err := open(c.Context, c.String("dsn"))
			if err != nil {
				return err
			}
			defer m.Shutdown()
			return fn(c, m)
		}
	}

	return &cli.App{
		Name:      "otl-migrate",
		Usage:     "manage the OTL bot database schema",
		Writer:    stdout,
		ErrWriter: stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "load environment variables from `FILE` before reading flags",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "postgres connection string",
				EnvVars: []string{"POSTGRES_DSN"},
			},
		},
		Before: func(c *cli.Context) error {
			// a missing .env is fine, the environment may already be set
			if err := godotenv.Load(c.String("env-file")); err != nil && c.IsSet("env-file") {
				return fmt.Errorf("loading %s: %w", c.String("env-file"), err)
			}
			if !c.IsSet("dsn") {
				if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
					return c.Set("dsn", dsn)
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply the schema",
				Action: withStore(func(c *cli.Context, m migrator) error {
					if err := m.Migrate(c.Context); err != nil {
						return err
					}
					fmt.Fprintf(stdout, "Schema is at version %d\n", store.SchemaVersion)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print the applied schema version",
				Action: withStore(func(c *cli.Context, m migrator) error {
					applied, err := m.AppliedVersion(c.Context)
					if err != nil {
						return err
					}
					switch {
					case applied == 0:
						fmt.Fprintf(stdout, "Schema has not been applied, run `otl-migrate migrate`\n")
					case applied < store.SchemaVersion:
						fmt.Fprintf(stdout, "Schema is at version %d, version %d is available\n", applied, store.SchemaVersion)
					default:
						fmt.Fprintf(stdout, "Schema is up to date at version %d\n", applied)
					}
					return nil
				}),
			},
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pumpline-erp/pumpline/internal/platform/db"
	"github.com/pumpline-erp/pumpline/migrations"
)

// MigrateOptions defines the arguments of the migrate command.
type MigrateOptions struct {
	DSN    string
	Stdout io.Writer
	Stderr io.Writer
}

// MigrateCommand applies pending journal migrations and returns the exit code.
func MigrateCommand(ctx context.Context, opts MigrateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.DSN == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "migrate: PG_DSN is not set")
		return 1
	}
	pool, err := db.New(ctx, opts.DSN)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "migrate: %v\n", err)
		return 1
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool, migrations.FS)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "migrate: %v\n", err)
		return 1
	}
	if len(applied) == 0 {
		_, _ = fmt.Fprintln(opts.Stdout, "migrate: nothing to apply")
		return 0
	}
	for _, name := range applied {
		_, _ = fmt.Fprintf(opts.Stdout, "applied %s\n", name)
	}
	return 0
}

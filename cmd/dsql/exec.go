package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chameleon-db/dsql/internal/spec"
	"github.com/chameleon-db/dsql/pkg/builder"
	"github.com/chameleon-db/dsql/pkg/engine"
)

var (
	execDryRun bool
	execAtomic bool
)

var execCmd = &cobra.Command{
	Use:   "exec [paths...]",
	Short: "Run statement descriptions against the database",
	Long: `Build and run statement description files in order.

Each statement is committed as it runs, unless --atomic is given (or
defaults.commit is false), in which case all statements share one
transaction that is committed at the end and rolled back on the first
error. With --dry-run statements are printed to stderr and the
database is never contacted.

Examples:
  dsql exec statements/seed.yml
  dsql exec statements/ --atomic
  dsql exec statements/cleanup.yml --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, factory, err := loadProject()
		if err != nil {
			return err
		}

		paths := args
		if len(paths) == 0 {
			paths = cfg.Statements.Paths
		}
		files, err := spec.Files(paths)
		if err != nil {
			return err
		}
		var descs []*spec.Description
		for _, f := range files {
			ds, err := spec.LoadFile(f)
			if err != nil {
				return err
			}
			descs = append(descs, ds...)
		}
		if len(descs) == 0 {
			printWarning("No statements to run")
			return nil
		}

		dialect, err := cfg.Database.ResolveDialect()
		if err != nil {
			return err
		}

		opts := execOptions{
			dryRun: execDryRun || cfg.Defaults.DryRun,
			atomic: execAtomic || !cfg.Defaults.Commit,
		}

		var exec engine.Executor = dryRunExecutor{}
		if !opts.dryRun {
			var closeDB func()
			exec, closeDB, err = openExecutor(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer closeDB()
		}

		mopts := []engine.Option{
			engine.WithDebug(engine.DebugContextFromEnv()),
			engine.WithLogger(logger),
		}
		if cfg.Journal.Enabled {
			if err := factory.Initialize(); err != nil {
				return err
			}
			jl, err := factory.CreateJournalLogger()
			if err != nil {
				return fmt.Errorf("failed to initialize journal: %w", err)
			}
			mopts = append(mopts, engine.WithObserver(jl.Observer()))
		}

		m := engine.NewManager(exec, dialect, mopts...)
		if err := runDescriptions(cmd.Context(), m, descs, opts, cmd.OutOrStdout()); err != nil {
			return err
		}
		if !opts.dryRun {
			printSuccess("%d statements executed", len(descs))
		}
		return nil
	},
}

func init() {
	execCmd.Flags().BoolVar(&execDryRun, "dry-run", false, "print statements instead of running them")
	execCmd.Flags().BoolVar(&execAtomic, "atomic", false, "run all statements in one transaction")

	rootCmd.AddCommand(execCmd)
}

type execOptions struct {
	dryRun bool
	atomic bool
}

// runDescriptions runs descs through m in order and prints each response.
func runDescriptions(ctx context.Context, m *engine.Manager, descs []*spec.Description, opts execOptions, w io.Writer) error {
	call := []engine.CallOption{engine.WithCommit(!opts.atomic)}
	if opts.dryRun {
		call = append(call, engine.WithDryRun())
	}

	fail := func(d *spec.Description, err error) error {
		err = fmt.Errorf("%s: %w", d.Source, err)
		if opts.atomic && !opts.dryRun {
			if rerr := m.Rollback(ctx); rerr != nil {
				return errors.Join(err, rerr)
			}
		}
		return err
	}

	for _, d := range descs {
		if d.Dialect != "" {
			if own, err := builder.ParseDialect(d.Dialect); err == nil && own != m.Dialect() {
				printWarning("%s: rendering for %s, not %s", d.Title(), m.Dialect().Name(), own.Name())
			}
		}

		q, err := d.Query()
		if err != nil {
			return fail(d, err)
		}
		resp, err := m.Do(ctx, q, call...)
		if err != nil {
			return fail(d, err)
		}
		if opts.dryRun {
			continue
		}

		infoColor.Fprintf(w, "-- %s\n", d.Title())
		if err := printResponse(w, resp); err != nil {
			return fail(d, err)
		}
	}

	if opts.atomic && !opts.dryRun {
		return m.Commit(ctx)
	}
	return nil
}

// printResponse writes resp; row responses are drained.
func printResponse(w io.Writer, resp engine.Response) error {
	switch r := resp.(type) {
	case engine.InsertResult:
		fmt.Fprintf(w, "inserted ids: %v\n", r.IDs)
	case engine.Affected:
		fmt.Fprintf(w, "%d rows affected\n", int64(r))
	case *engine.Rows:
		cols := r.Columns()
		fmt.Fprintln(w, strings.Join(cols, " | "))
		n := 0
		for r.Next() {
			row := r.Row()
			cells := make([]string, len(cols))
			for i, c := range cols {
				cells[i] = fmt.Sprint(row[c])
			}
			fmt.Fprintln(w, strings.Join(cells, " | "))
			n++
		}
		if err := r.Err(); err != nil {
			return err
		}
		fmt.Fprintf(w, "(%d rows)\n", n)
	}
	return nil
}

// dryRunExecutor stands in for a database when nothing may run.
type dryRunExecutor struct{}

func (dryRunExecutor) Execute(context.Context, *builder.Statement) (engine.Cursor, error) {
	return nil, errors.New("dsql: dry run executor cannot execute statements")
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chameleon-db/dsql/internal/spec"
	"github.com/chameleon-db/dsql/pkg/builder"
)

var (
	renderDialect string
	renderFormat  string
	renderSave    bool
)

var renderCmd = &cobra.Command{
	Use:   "render [paths...]",
	Short: "Render statement descriptions without running them",
	Long: `Render statement description files to SQL and parameters.

Nothing is sent to the database. Paths may be files or directories;
without arguments the statements.paths of the configuration are used.

Examples:
  dsql render
  dsql render statements/users.yml --dialect=mysql
  dsql render statements/ --format=json
  dsql render --save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, factory, err := loadProject()
		if err != nil {
			return err
		}

		dialect, err := pickDialect(renderDialect, cfg.Database.ResolveDialect)
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
		if len(files) == 0 {
			printWarning("No statement description files found")
			return nil
		}

		results, err := renderFiles(cmd.Context(), files, dialect)
		if err != nil {
			return err
		}

		if renderSave {
			dir := factory.Paths().Rendered
			if err := saveRendered(dir, results); err != nil {
				return err
			}
			printSuccess("Saved %d statements to %s", len(results), dir)
			return nil
		}

		if renderFormat == "json" {
			return writeRenderedJSON(cmd.OutOrStdout(), results)
		}
		writeRenderedText(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderDialect, "dialect", "", "dialect (standard|mysql|postgresql|mssql), default from config")
	renderCmd.Flags().StringVar(&renderFormat, "format", "text", "output format (text|json)")
	renderCmd.Flags().BoolVar(&renderSave, "save", false, "write rendered statements to .dsql/rendered/")

	rootCmd.AddCommand(renderCmd)
}

// rendered is one description rendered to SQL
type rendered struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	File    string `json:"-"`
	Dialect string `json:"dialect"`
	Kind    string `json:"kind"`
	SQL     string `json:"sql"`
	Params  []any  `json:"params"`
}

func newRendered(d *spec.Description, stmt *builder.Statement, dialect builder.Dialect) rendered {
	return rendered{
		Name:    d.Title(),
		Source:  d.Source,
		Dialect: dialect.Name(),
		Kind:    stmt.Kind.String(),
		SQL:     stmt.Text,
		Params:  stmt.Params,
	}
}

// renderFiles renders every description of files concurrently. Results
// keep file order, then document order.
func renderFiles(ctx context.Context, files []string, def builder.Dialect) ([]rendered, error) {
	perFile := make([][]rendered, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			descs, err := spec.LoadFile(file)
			if err != nil {
				return err
			}
			out := make([]rendered, 0, len(descs))
			for _, d := range descs {
				dialect, err := descriptionDialect(d, def)
				if err != nil {
					return err
				}
				stmt, err := d.Build(dialect)
				if err != nil {
					return err
				}
				r := newRendered(d, stmt, dialect)
				r.File = file
				out = append(out, r)
			}
			perFile[i] = out
			logger.Debug("rendered", "file", file, "statements", len(out))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []rendered
	for _, rs := range perFile {
		results = append(results, rs...)
	}
	return results, nil
}

// descriptionDialect returns the dialect a description renders in.
func descriptionDialect(d *spec.Description, def builder.Dialect) (builder.Dialect, error) {
	if d.Dialect == "" {
		return def, nil
	}
	dialect, err := builder.ParseDialect(d.Dialect)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Source, err)
	}
	return dialect, nil
}

// pickDialect parses flag, or falls back to the configured dialect.
func pickDialect(flag string, fallback func() (builder.Dialect, error)) (builder.Dialect, error) {
	if flag != "" {
		return builder.ParseDialect(flag)
	}
	return fallback()
}

func writeRenderedText(w io.Writer, results []rendered) {
	for _, r := range results {
		infoColor.Fprintf(w, "-- %s (%s, %s)\n", r.Name, r.Kind, r.Dialect)
		fmt.Fprintln(w, r.SQL)
		fmt.Fprintf(w, "%v\n\n", r.Params)
	}
}

func writeRenderedJSON(w io.Writer, results []rendered) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// saveRendered writes one .sql file per description file into dir.
func saveRendered(dir string, results []rendered) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	files := make(map[string]*strings.Builder)
	var order []string
	for _, r := range results {
		b, ok := files[r.File]
		if !ok {
			b = &strings.Builder{}
			files[r.File] = b
			order = append(order, r.File)
		}
		fmt.Fprintf(b, "-- %s (%s)\n-- params: %v\n%s;\n\n", r.Name, r.Dialect, r.Params, r.SQL)
	}

	names := make(map[string]string, len(order))
	for _, file := range order {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ".sql"
		if prev, ok := names[name]; ok {
			return fmt.Errorf("%s and %s both render to %s", prev, file, name)
		}
		names[name] = file
	}

	for _, file := range order {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ".sql"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(files[file].String()), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

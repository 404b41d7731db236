package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/supplyhub/marketplace-backend/pkg/config"
	"github.com/supplyhub/marketplace-backend/pkg/db"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands:
  up              apply all pending migrations
  down            roll back the latest migration
  status          list migrations and when they were applied
  to VERSION      move the schema to VERSION (YYYYMMDDHHMMSS)
  create NAME     write an empty SQL migration into -dir
  validate        check migration file names and goose markers

Without -dir, database commands use the migrations built into this binary.
`

func main() {
	_ = godotenv.Load()

	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
	dir := flags.String("dir", "", "migrations directory (default: embedded; create writes to "+migrate.DefaultDir+")")
	flags.Usage = func() { fmt.Fprint(flags.Output(), usage) }
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}
	cmd, arg := flags.Arg(0), flags.Arg(1)

	if err := run(context.Background(), cmd, arg, *dir, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd, arg, dir string, out io.Writer) error {
	// create and validate only touch files, so they work without config
	switch cmd {
	case "create":
		if arg == "" {
			return fmt.Errorf("missing migration name")
		}
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.Create(dir, arg, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "created", path)
		return nil
	case "validate":
		if err := migrate.Validate(source(dir)); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations valid")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.FromConfig("migrate", cfg.App)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.SQL()
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, source(dir), logg)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "to":
		return runner.To(ctx, arg)
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(out, statuses)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func source(dir string) fs.FS {
	if dir == "" {
		return migrate.EmbeddedFS()
	}
	return os.DirFS(dir)
}

func printStatus(out io.Writer, statuses []*goose.MigrationStatus) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
	}
	_ = w.Flush()
}

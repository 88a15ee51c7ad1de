package main

import (
	"fmt"
	"io"

	"github.com/banshee-data/pose-replay/internal/store"
)

// runMigrateCommand handles 'pose-replay migrate <action>'. Opening the
// store applies pending migrations, so "up" only reports the result.
func runMigrateCommand(w io.Writer, args []string, dbPath string) error {
	if len(args) < 1 {
		printMigrateHelp(w)
		return fmt.Errorf("missing migrate action")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	switch args[0] {
	case "up":
		fmt.Fprintln(w, "✓ All migrations applied successfully")
	case "down":
		if err := st.MigrateDown(); err != nil {
			return err
		}
		fmt.Fprintln(w, "✓ Rolled back one migration")
	case "status":
	case "help":
		printMigrateHelp(w)
		return nil
	default:
		printMigrateHelp(w)
		return fmt.Errorf("unknown migrate action: %s", args[0])
	}

	version, dirty, err := st.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema version: %d (dirty: %t)\n", version, dirty)
	return nil
}

func printMigrateHelp(w io.Writer) {
	fmt.Fprintln(w, `Usage: pose-replay [-db path] migrate <action>

Actions:
  up       apply all pending migrations
  down     roll back the most recent migration
  status   show the current schema version
  help     show this message`)
}

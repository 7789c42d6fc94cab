package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/samirrijal/parkit/internal/adapters/postgres"
	"github.com/samirrijal/parkit/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("parkit-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		files := migrationFiles("up")
		runMigrations(ctx, db, files)
	case "down":
		files := migrationFiles("down")
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
		runMigrations(ctx, db, files)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// migrationFiles lists migrations/NNN_name.<direction>.sql in name order.
func migrationFiles(direction string) []string {
	files, err := filepath.Glob(filepath.Join("migrations", "*."+direction+".sql"))
	if err != nil {
		log.Fatalf("glob migrations: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no %s migrations found in ./migrations", direction)
	}
	sort.Strings(files)
	return files
}

func runMigrations(ctx context.Context, db *postgres.DB, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/theodoreromeos/account-management/internal/account"
	"github.com/theodoreromeos/account-management/internal/migrate"
	"github.com/theodoreromeos/account-management/migrations"
)

func main() {
	var dsn string
	flag.StringVar(&dsn, "dsn", os.Getenv("ACCOUNTS_PG_DSN"), "postgres dsn")
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}
	if dsn == "" {
		log.Fatal("dsn is required (flag -dsn or ACCOUNTS_PG_DSN)")
	}

	db, err := account.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, migrations.FS, ".")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cmd {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "status":
		var applied []string
		applied, err = mgr.Status(ctx)
		for _, name := range applied {
			fmt.Println(name)
		}
	case "seed":
		err = mgr.Seed(ctx)
	default:
		log.Fatalf("unknown command %q (want up, down, status or seed)", cmd)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// Command migrate applies or rolls back the booking schema outside the
// service process.
//
//	migrate up        apply schema migrations
//	migrate seed      apply schema and catalog seed migrations
//	migrate down      roll everything back
//	migrate to N      move to version N
//	migrate version   print the current version
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up|seed|down|version|to <version>")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Options{Level: logger.ParseLevel(cfg.Log.Level)})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cmd := os.Args[1]
	db, err := database.Connect(context.Background(), cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer db.Close()

	opts := migrations.DefaultOptions()
	opts.SeedData = cmd == "seed"
	runner := migrations.NewRunner(db.DB, opts, log)
	defer runner.Close()

	switch cmd {
	case "up", "seed":
		err = runner.RunMigrations()
	case "down":
		err = runner.MigrateDown()
	case "to":
		if len(os.Args) < 3 {
			usage()
		}
		var v uint64
		v, err = strconv.ParseUint(os.Args[2], 10, 32)
		if err == nil {
			err = runner.MigrateTo(uint(v))
		}
	case "version":
		v, dirty, verr := runner.Version()
		if verr != nil {
			log.Fatal("MIGRATION", verr.Error())
		}
		log.Info("MIGRATION", fmt.Sprintf("version=%d dirty=%t", v, dirty))
		return
	default:
		usage()
	}

	if err != nil {
		log.Fatal("MIGRATION", err.Error())
	}
	log.Info("MIGRATION", fmt.Sprintf("%s complete", cmd))
}

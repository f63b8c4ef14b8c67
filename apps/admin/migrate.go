package main

import (
	"fmt"

	"github.com/trezcool/kazi/storage/database"
)

var (
	migrateUpFunc   = database.Migrate  // mockable
	migrateDownFunc = database.Rollback // mockable
)

func (cli *commandLine) migrate(direction string) error {
	switch direction {
	case "up":
		return migrateUpFunc(cli.db, cli.conf)
	case "down":
		return migrateDownFunc(cli.db, cli.conf)
	default:
		return fmt.Errorf("%q: no such command", direction)
	}
}

package main

import "github.com/trezcool/darasa/storage/database"

var migrateRunFunc = database.RunMigration // mockable

func (cli *commandLine) migrate(args []string) error {
	extra := make([]string, 0)
	if len(args) > 1 {
		extra = append(extra, args[1:]...)
	}
	return migrateRunFunc(cli.db, args[0], extra...)
}

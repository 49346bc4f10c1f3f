package main

import (
	"os"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/core/records"
	"github.com/trezcool/rekodi/services/logger"
	"github.com/trezcool/rekodi/storage"
)

func main() {
	wd, err := os.Getwd()
	errAndDie(err)
	conf, err := core.LoadConfig(wd)
	errAndDie(err)

	log, err := logsvc.New(conf)
	errAndDie(err)

	// a corrupt or unreachable store stops the program here
	repo, err := storage.Open(conf.Backend, conf, log)
	if err != nil {
		log.Error("opening store failed", "backend", conf.Backend, err)
		_ = log.Sync()
		errAndDie(err)
	}

	cli := commandLine{
		conf: conf,
		log:  log,
		svc:  records.NewService(repo, log),
		in:   os.Stdin,
		out:  os.Stdout,
	}
	err = cli.run(os.Args)
	_ = repo.Close()
	_ = log.Sync()
	if err != nil {
		if err != errHelp {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

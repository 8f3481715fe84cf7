package main

import (
	"log"
	"os"

	dig_container "github.com/lord-charles/AMS-TURBO-REPO-sub003/apps/api/di/dig"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	var code int
	c := dig_container.New()
	err := c.Invoke(func(conf *core.Config, svc attendance.Service) {
		// start CLI
		cli := commandLine{svc: svc, out: os.Stdout, confirmWindow: conf.Attendance.ConfirmationWindow}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				logger.Printf("\nerror: %s\n", err)
			}
			code = 1
		}
	})
	if err != nil {
		logger.Fatal(err)
	}
	os.Exit(code)
}

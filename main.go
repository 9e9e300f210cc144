package main

import (
	"flag"
	"os"

	"github.com/mna/mainer"

	"ember/internal/driver"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file overriding VM limits")
	flag.Parse()

	os.Exit(driver.Run(flag.Args(), mainer.CurrentStdio(), *configPath))
}

package main

import (
	"os"

	"github.com/borgmon/transit-snoozer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	mentorcmder "github.com/papercomputeco/mentor/cmd/mentor"
)

func main() {
	cmd := mentorcmder.NewMentorCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/svetlov/skill-interviewer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

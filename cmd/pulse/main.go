package main

import (
	"github.com/mcoot/eventpulse/internal/cli"
)

func main() {
	cli.Execute()
}

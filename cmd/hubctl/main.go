package main

import (
	"github.com/mythichub/nexus/internal/cli"
)

func main() {
	cli.Execute()
}

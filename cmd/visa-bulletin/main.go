package main

import "github.com/pfrederiksen/visa-bulletin/internal/cli"

var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}

package main

import "pmk/internal/cli"

func main() {
	cli.Execute()
}

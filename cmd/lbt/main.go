package main

import "lbt/internal/cli"

func main() {
	cli.Execute()
}

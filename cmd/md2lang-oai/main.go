package main

import "md2lang-oai/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/nhle/forum-inbound/internal/cli"

func main() {
	cli.Execute()
}

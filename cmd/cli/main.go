package main

import "bookauthor/cmd/cli/command"

func main() {
	command.Execute()
}

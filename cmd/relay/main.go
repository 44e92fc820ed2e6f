package main

import "github.com/calder/relay/cmd/relay/commands"

func main() {
	commands.Execute()
}

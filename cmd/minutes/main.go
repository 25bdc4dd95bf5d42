package main

import "github.com/strrl/minutes-workspace/cmd/minutes/commands"

func main() {
	commands.Execute()
}

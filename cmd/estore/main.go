package main

import "estore/cmd/estore/commands"

func main() {
	commands.Execute()
}

package main

import "github.com/philipparndt/gobim/cmd"

func main() {
	cmd.Execute()
}

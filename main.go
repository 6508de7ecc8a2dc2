package main

import "alphogen/cmd"

func main() {
	cmd.Execute()
}

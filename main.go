package main

import "github.com/quantary/optionsentry/cmd"

func main() {
	cmd.Execute()
}

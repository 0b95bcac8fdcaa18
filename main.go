package main

import "github.com/khanhnv2901/veribits-cli/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}

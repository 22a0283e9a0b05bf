package main

import "github.com/kozaktomas/face-graph/cmd"

func main() {
	cmd.Execute()
}

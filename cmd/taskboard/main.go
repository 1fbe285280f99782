package main

import "go.pilab.hu/taskboard/cmd/taskboard/cmd"

func main() {
	cmd.Execute()
}

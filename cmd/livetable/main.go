package main

import "github.com/nimsforest/livetable/cmd/livetable/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/blockshq/floortiler/cmd"

func main() {
	cmd.Execute()
}

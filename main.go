package main

import "github.com/sstent/buzzsample/cmd"

func main() {
	cmd.Execute()
}

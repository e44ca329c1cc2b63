package main

import "github.com/feedloom/feedloom/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/boozedog/chronicle/cmd"

func main() {
	cmd.Execute()
}

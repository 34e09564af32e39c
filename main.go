package main

import "github.com/galsec/galscan/cmd"

func main() {
	cmd.Execute()
}

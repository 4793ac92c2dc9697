package main

import "github.com/kozaktomas/securebase/cmd"

func main() {
	cmd.Execute()
}

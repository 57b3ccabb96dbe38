package main

import "github.com/ageclient/ageclient/cmd"

const version = "0.1.0"

func main() {
	cmd.Execute(version)
}

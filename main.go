// Package main is the entry point for the twister CLI.
package main

import "twister.dev/pkg/twister/cmd"

func main() {
	cmd.Execute()
}

package main

import "gradle2nix.dev/gradle2nix/cli/cmd"

func main() {
	cmd.Execute()
}

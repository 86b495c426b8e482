package main

import "github.com/user/cyberpulse/cmd"

func main() {
	cmd.Execute()
}

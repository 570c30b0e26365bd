package main

import "github.com/fourshot/wigglegram/cmd"

func main() {
	cmd.Execute()
}

package main

import "permsync/cmd"

func main() {
	cmd.Execute()
}

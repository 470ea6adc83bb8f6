package main

import "github.com/RMahshie/emav/cmd/emav/cmd"

func main() {
	cmd.Execute()
}

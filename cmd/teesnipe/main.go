package main

import "github.com/example/teetime-sniper/cmd"

func main() {
	cmd.Execute()
}

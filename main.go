package main

import "github.com/henriquecbuss/lintwatch/cmd"

func main() {
	cmd.Execute()
}

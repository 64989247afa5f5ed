package main

import "github.com/semi-technologies/spmfgen/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/lexandro/contextor-mcp/cmd"

func main() {
	cmd.Execute()
}

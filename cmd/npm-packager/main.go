package main

import "github.com/qrafty-ai/opencode-kanban/cmd/npm-packager/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/thread-dump-analysis/cmd/threaddump/cmd"

func main() {
	cmd.Execute()
}

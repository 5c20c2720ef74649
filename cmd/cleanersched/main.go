package main

import "github.com/example/cleaner-scheduler/internal/interfaces/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/forPelevin/srtgen/internal/cli"

func main() {
	cli.Main()
}

package main

import "github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/cli"

func main() {
	cli.Execute()
}

package main

import "price-drop-tracker/internal/cli"

func main() {
	cli.Execute()
}

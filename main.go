package main

import (
	"soundswap/cmd"
)

func main() {
	cmd.Execute()
}

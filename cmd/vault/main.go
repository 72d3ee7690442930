package main

import (
	"pinvault/cmd/vault/cmd"
)

func main() {
	cmd.Execute()
}

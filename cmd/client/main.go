// cmd/client/main.go
package main

import (
	"daylog/cmd/client/cmd"
)

func main() {
	cmd.Execute()
}

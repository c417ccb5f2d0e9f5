package main

import "github.com/labelgw/label-gateway/cmd"

func main() {
	cmd.Execute()
}

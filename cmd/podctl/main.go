package main

import "github.com/nfrund/podclient/cmd/podctl/cmd"

func main() {
	cmd.Execute()
}

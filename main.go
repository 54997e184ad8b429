package main

import "github.com/theirongolddev/cxburn/cmd"

func main() {
	cmd.Execute()
}

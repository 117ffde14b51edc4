package main

import "github.com/vitalkit/riskctl/pkg/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/weblab-dev/oauth-flow-runner/pkg/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/truemagic-coder/solana-agent-kit-sub000/cmd"

func main() {
	cmd.Execute()
}

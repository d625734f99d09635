package main

import "github.com/prebaalex/voicememos/cmd/codes/cmd"

func main() {
	cmd.Execute()
}

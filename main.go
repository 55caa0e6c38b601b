package main

import "github.com/RyanBlaney/voice-features/cmd"

func main() {
	cmd.Execute()
}

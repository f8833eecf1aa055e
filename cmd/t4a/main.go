package main

import (
	"transcribe4all/cmd/t4a/cmd"

	// Import engines to register them
	_ "transcribe4all/internal/app/recognizer/openai"
	_ "transcribe4all/internal/app/recognizer/sphinx"
)

func main() {
	cmd.Execute()
}

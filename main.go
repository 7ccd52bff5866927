package main

import "github.com/benzaid32/virtuoso-ai-music-lab/cmd"

func main() {
	cmd.Execute()
}

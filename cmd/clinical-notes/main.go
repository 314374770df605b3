package main

import "github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/yungbote/tossup-backend/internal/cli"

func main() {
	cli.Execute()
}

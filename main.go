package main

import "blog_backend/cmd"

func main() {
	cmd.Execute()
}

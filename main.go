package main

import "github.com/vietdv277/bucketinv/cmd"

func main() {
	cmd.Execute()
}

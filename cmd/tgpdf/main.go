package main

import "os"

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(execute(os.Args[1:], DefaultDeps()))
}

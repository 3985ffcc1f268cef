// Command csim replays a Valgrind memory trace against a set-associative
// cache and prints the number of hits, misses and evictions.
package main

import "github.com/sarchlab/cachesim/csim/cmd"

func main() {
	cmd.Execute()
}

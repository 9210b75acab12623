// Command twentyq plays 20 questions and learns the animals it misses.
package main

import "github.com/mesh-intelligence/twentyq/internal/cli"

func main() {
	cli.Execute()
}

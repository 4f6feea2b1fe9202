package main

import (
	"github.com/openziti/fablab/kernel/lib/figlet"
	"github.com/openkiss/kiss/cmd/kiss/subcmd"
)

func main() {
	figlet.Figlet("kiss")
	subcmd.Execute()
}

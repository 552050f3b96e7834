package main

import (
	"fmt"
	"os"
	sys "os"
)

func helper() {
	os.Exit(2)
}

func main() {
	defer fmt.Println("never printed")

	if len(os.Args) > 3 {
		helper()
	}
	if len(os.Args) > 2 {
		sys.Exit(1) // want "calling os.Exit in main package main func"
	}
	func() {
		os.Exit(3) // want "calling os.Exit in main package main func"
	}()
	os.Exit(0) // want "calling os.Exit in main package main func"
}

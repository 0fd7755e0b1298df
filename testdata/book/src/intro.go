//go:build ignore

package intro

import "fmt"

func body() {
	// # Intro in Go
	//
	// Go chapters work the same way.
	fmt.Println("hello")
}

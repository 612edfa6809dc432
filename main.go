/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/f1viz-service-go/cmd"

func main() {
	cmd.Execute()
}

/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/Lakshya182005/CircuitCrafter/cmd"

func main() {
	cmd.Execute()
}

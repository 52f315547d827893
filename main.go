package main

import "github.com/inovacc/aimodels/cmd"

func main() {
	cmd.Execute()
}

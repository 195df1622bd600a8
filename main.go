package main

import "github.com/markgwharry/modiniapps/cmd"

func main() {
	cmd.Execute()
}

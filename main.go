/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package main

import "github.com/famano/gpt-worker/cmd"

func main() {
	cmd.Execute()
}

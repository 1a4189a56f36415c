package main

import "github.com/vibast-solutions/ms-go-favorpay/cmd"

func main() {
	cmd.Execute()
}

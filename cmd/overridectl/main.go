package main

import "github.com/vladimiradmaev/therapy-overrides/cmd/overridectl/arg"

func main() {
	arg.Execute()
}

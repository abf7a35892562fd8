package main

import (
	"os"

	"github.com/bcongdon/invindex"
)

func main() {
	driver := invindex.NewDriver()
	os.Exit(driver.Main())
}

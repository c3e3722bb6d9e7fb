package main

import (
	"github.com/openshift-assisted/inventory-sync/cmd/inventory-sync/cmd"
)

func main() {
	cmd.Execute()
}

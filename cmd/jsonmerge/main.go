// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"

	"github.com/sam-fredrickson/jsonmerge/internal/cli"
)

var version = "dev"

func main() {
	cli.Version = version
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

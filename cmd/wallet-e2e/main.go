// Command wallet-e2e runs the create-wallet end-to-end scenarios.
package main

import "github.com/devicelab-dev/wallet-e2e/pkg/cli"

func main() {
	cli.Execute()
}

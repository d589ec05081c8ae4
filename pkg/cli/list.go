package cli

import (
	"fmt"

	"github.com/devicelab-dev/wallet-e2e/pkg/scenarios"
	"github.com/urfave/cli/v2"
)

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List registered scenarios",
	Action: func(c *cli.Context) error {
		out := c.App.Writer
		all := scenarios.All()
		fmt.Fprintf(out, "%s%s%s (%d scenarios)\n", color(colorBold), scenarios.SuiteName, color(colorReset), len(all))
		for _, sc := range all {
			fmt.Fprintf(out, "  %-28s %s%-8s%s %s\n",
				sc.Name, color(colorGray), sc.Severity, color(colorReset), sc.Description)
		}
		return nil
	},
}

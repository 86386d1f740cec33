package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gogpu/staging"
	"github.com/gogpu/staging/driver"
)

func newDriversCommand(_ *app) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "List registered drivers",
		Long: `List the registered drivers. With --probe each driver is opened and
its adapter and row pitch alignment are shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if !probe {
				for _, name := range driver.Available() {
					fmt.Fprintln(w, name)
				}
				return nil
			}

			fmt.Fprintln(w, "DRIVER\tADAPTER\tTYPE\tALIGNMENT\tSTATUS")
			for _, name := range driver.Available() {
				dev, err := staging.Open(name)
				if err != nil {
					fmt.Fprintf(w, "%s\t-\t-\t-\t%v\n", name, err)
					continue
				}
				info := dev.Info()
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\tok\n", name, info.Name, info.Type, dev.RowPitchAlignment())
				dev.Dispose()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "open each driver and show its adapter")
	return cmd
}

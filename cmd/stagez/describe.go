package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

const (
	outputText    = "text"
	outputJSON    = "json"
	outputMsgpack = "msgpack"
)

func newDescribeCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the resolved pipeline topology",
		Long: `Print the demo pipeline's topology after configuration is applied.

Formats:
  text     one line, inputs → stage:priority → … → outputs
  json     structured topology
  msgpack  hex-encoded msgpack topology`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			topo := p.Topology()
			out := cmd.OutOrStdout()
			switch format {
			case outputText:
				_, err = fmt.Fprintln(out, topo)
			case outputJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err = enc.Encode(topo)
			case outputMsgpack:
				var data []byte
				if data, err = topo.Encode(); err == nil {
					_, err = fmt.Fprintln(out, hex.EncodeToString(data))
				}
			default:
				err = fmt.Errorf("unknown format %q", format)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", outputText, "output format: text, json or msgpack")
	return cmd
}

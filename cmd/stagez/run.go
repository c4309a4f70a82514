package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"github.com/zoobzio/stagez"
	"github.com/zoobzio/stagez/examples/simple"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <word>...",
		Short: "Push words through the demo pipeline",
		Long: `Push each argument through the demo pipeline and print what reaches
SimpleOutput, one line per word.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, logger, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			printer := &printer{w: cmd.OutOrStdout()}
			if err := stagez.Out[string](p, simple.OutputName, printer.sink); err != nil {
				return err
			}

			in, err := stagez.In[[]rune](p, simple.InputName)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			for _, word := range args {
				in(ctx, []rune(word))
			}
			logger.Debug().Int("words", len(args)).Uint64("version", p.Version()).Msg("run complete")
			return printer.err
		},
	}
}

// printer writes each delivered value on its own line and keeps the first
// write error.
type printer struct {
	w   io.Writer
	err error
	mu  sync.Mutex
}

func (pr *printer) sink(_ context.Context, s string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.err != nil {
		return
	}
	_, pr.err = fmt.Fprintf(pr.w, "out=%s\n", s)
}

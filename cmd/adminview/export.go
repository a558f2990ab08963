package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		userID  string
		out     string
		archive bool
	)
	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Write a list page as CSV using the user's saved filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, lg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, lg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.admin.Resource(args[0])
			if err != nil {
				return err
			}

			var (
				dst  io.Writer = cmd.OutOrStdout()
				file *os.File
			)
			if out != "" && out != "-" {
				if file, err = os.Create(out); err != nil {
					return err
				}
				defer file.Close()
				dst = file
			}

			var copyBuf *bytes.Buffer
			if archive {
				if a.archiver == nil {
					return fmt.Errorf("archive requested but S3_BUCKET is not set")
				}
				copyBuf = &bytes.Buffer{}
			}

			var rows int
			err = writeBuffered(dst, func(w io.Writer) error {
				if copyBuf != nil {
					w = io.MultiWriter(w, copyBuf)
				}
				n, err := res.Export(ctx, userID, w)
				rows = n
				return err
			})
			if err != nil {
				return err
			}
			if file != nil {
				if err := file.Close(); err != nil {
					return fmt.Errorf("close %s: %w", out, err)
				}
			}
			if copyBuf != nil {
				key, err := a.archiver.Archive(ctx, res.Name(), userID, rows, copyBuf.Bytes(), time.Now())
				if err != nil {
					return err
				}
				lg.Info().Str("key", key).Msg("export archived")
			}
			lg.Info().Str("resource", res.Name()).Int("rows", rows).Msg("export written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "demo-user", "user whose saved view state filters the export")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&archive, "archive", false, "also upload the file to the export bucket")
	return cmd
}

// writeBuffered runs write against a buffered dst and reports the flush
// error, so a short write to disk fails the export.
func writeBuffered(dst io.Writer, write func(io.Writer) error) error {
	bw := bufio.NewWriter(dst)
	if err := write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

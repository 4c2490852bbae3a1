package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/woodsnap/internal/cli"
	"github.com/Veraticus/woodsnap/internal/common"
)

var photoExtensions = []string{".jpg", ".jpeg", ".png"}

func batchCmd() *cobra.Command {
	var (
		offline bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Identify every photo in a directory, one scan each",
		Long: `Identify every JPEG or PNG photo in a directory as its own single-photo scan.

The run stops early when the daily allowance is used up or on Ctrl+C. Scans
finished before the stop are kept in history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := listPhotos(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("No photos found in "+args[0]))
				return nil
			}

			interrupts := cli.NewInterruptHandler(cmd.OutOrStdout(), "Batch interrupted!")
			ctx, stop := interrupts.HandleInterrupts(cmd.Context())
			defer stop()

			a, err := newApp(ctx, appOptions{offline: offline, watch: watch})
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			bar := newBatchProgress(out, len(files))

			var identified, failed int
		scan:
			for _, file := range files {
				if ctx.Err() != nil {
					break
				}

				photos, err := readPhotos([]string{file})
				if err == nil {
					_, _, err = a.Identify(ctx, photos)
				}
				if bar != nil {
					_ = bar.Add(1)
				}

				switch {
				case err == nil:
					identified++
				case errors.Is(err, common.ErrQuotaExceeded):
					_, _ = fmt.Fprintln(out, "\n"+cli.RenderError(err))
					break scan
				case common.IsCancellation(ctx, err):
					break scan
				default:
					failed++
					slog.Warn("Scan failed", "file", filepath.Base(file), "error", err)
				}
			}

			summary := fmt.Sprintf("Identified %d of %d photos", identified, len(files))
			if failed > 0 {
				summary += fmt.Sprintf(" (%d failed)", failed)
			}
			_, _ = fmt.Fprintln(out, "\n"+cli.FormatSuccess(summary))
			if interrupts.WasInterrupted() {
				return ctx.Err()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the network and use the on-device model")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the offline model and config file when they change")

	return cmd
}

// listPhotos returns the photo files directly inside dir, sorted by name.
func listPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if slices.Contains(photoExtensions, ext) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// newBatchProgress returns a progress bar when out is a terminal.
func newBatchProgress(out io.Writer, total int) *progressbar.ProgressBar {
	f, ok := out.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(cli.WoodIcon+" Identifying"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(out)
		}),
	)
}

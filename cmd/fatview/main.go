// Command fatview inspects FAT12/FAT16 volume images: geometry, directory
// listings, file contents and an interactive browser in the style of the
// classic DOS dir prompt.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/croeber/fatview"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fatview",
		Short:         "Browse FAT12/FAT16 volume images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newInfoCmd(),
		newLsCmd(),
		newTreeCmd(),
		newCatCmd(),
		newBrowseCmd(),
	)

	return root
}

// mountImage opens and mounts the image at path from the host filesystem.
func mountImage(path string) (*fatview.Volume, error) {
	return fatview.MountPath(afero.NewOsFs(), path)
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <image>",
		Short: "Print the volume geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := mountImage(args[0])
			if err != nil {
				return err
			}
			defer volume.Unmount()

			info := volume.Info()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Volume label:        %s\n", info.Label)
			fmt.Fprintf(out, "Filesystem:          %s\n", info.FSType)
			fmt.Fprintf(out, "Bytes per sector:    %d\n", info.BytesPerSector)
			fmt.Fprintf(out, "Sectors per cluster: %d\n", info.SectorsPerCluster)
			fmt.Fprintf(out, "Reserved sectors:    %d\n", info.ReservedSectorCount)
			fmt.Fprintf(out, "FATs:                %d x %d sectors\n", info.FatCount, info.FatSize)
			fmt.Fprintf(out, "Root entries:        %d\n", info.RootEntryCount)
			fmt.Fprintf(out, "First FAT sector:    %d\n", info.FirstFatSector)
			fmt.Fprintf(out, "First root sector:   %d\n", info.FirstRootSector)
			fmt.Fprintf(out, "First data sector:   %d\n", info.FirstDataSector)
			fmt.Fprintf(out, "End-of-chain marker: 0x%X\n", info.EndOfChain)
			return nil
		},
	}
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <image> [path]",
		Short: "List a directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := mountImage(args[0])
			if err != nil {
				return err
			}
			defer volume.Unmount()

			path := ""
			if len(args) == 2 {
				path = args[1]
			}

			file, err := volume.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			infos, err := file.Readdir(-1)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, info := range infos {
				kind := "-"
				if info.IsDir() {
					kind = "d"
				}
				fmt.Fprintf(out, "%s %10d  %s  %s\n",
					kind, info.Size(),
					info.ModTime().Format("2006-01-02 15:04:05"),
					info.Name())
			}
			return nil
		},
	}
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <image>",
		Short: "Walk the whole volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := mountImage(args[0])
			if err != nil {
				return err
			}
			defer volume.Unmount()

			out := cmd.OutOrStdout()
			seen := map[string]bool{}
			return afero.Walk(volume, "", func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				// The walk would descend through ".." forever: its
				// path comes back cleaned to a directory already on
				// the walk ("." for the root), which is listed on its
				// own level and skipped here.
				if path == "." || seen[path] {
					return filepath.SkipDir
				}
				seen[path] = true
				if path == "" {
					return nil
				}
				fmt.Fprintln(out, path)
				return nil
			})
		},
	}
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <image> <path>",
		Short: "Print the contents of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := mountImage(args[0])
			if err != nil {
				return err
			}
			defer volume.Unmount()

			file, err := volume.Open(args[1])
			if err != nil {
				return err
			}
			defer file.Close()

			_, err = io.Copy(cmd.OutOrStdout(), file)
			return err
		},
	}
}

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse <image>",
		Short: "Browse the volume interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := mountImage(args[0])
			if err != nil {
				return err
			}
			defer volume.Unmount()

			return browse(volume, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// browse is the interactive loop: list the current directory as an indexed
// table, read an index, descend into directories or print files.
func browse(volume *fatview.Volume, in io.Reader, out io.Writer) error {
	entries, err := volume.ReadDirectory(0)
	if err != nil {
		return err
	}
	printListing(out, entries)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nSelect (q to quit): ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "q" || line == "quit" {
			return nil
		}

		index, err := strconv.Atoi(line)
		if err != nil || index < 0 || index >= len(entries) {
			fmt.Fprintf(out, "no entry %q\n", line)
			continue
		}

		entry := entries[index]
		if entry.IsDir() {
			entries, err = volume.ReadDirectory(entry.FirstCluster)
			if err != nil {
				return err
			}
			printListing(out, entries)
			continue
		}

		if entry.Size == 0 || entry.FirstCluster < 2 {
			fmt.Fprintln(out, "(empty file)")
			continue
		}

		buffer := make([]byte, entry.RoundUpSize)
		if err := volume.ReadFile(entry.FirstCluster, buffer); err != nil {
			return err
		}
		out.Write(buffer[:entry.Size])
		fmt.Fprintln(out)
		printListing(out, entries)
	}
}

func printListing(out io.Writer, entries []fatview.Entry) {
	fmt.Fprintf(out, "%-5s%-30s%-14s%-10s%s\n", "No", "Name", "Type", "Size", "Date modified")
	for i := range entries {
		entry := &entries[i]

		kind := "File"
		size := fmt.Sprintf("%d", entry.Size)
		if entry.IsDir() {
			kind = "File Folder"
			size = ""
		}

		date := entry.ModifiedDate
		clock := entry.ModifiedTime
		fmt.Fprintf(out, "%-5d%-30s%-14s%-10s%d/%d/%d %d:%02d:%02d\n",
			i, entry.DisplayName(), kind, size,
			date.Day, date.Month, date.Year,
			clock.Hour, clock.Minute, clock.Second)
	}
}

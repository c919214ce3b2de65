package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yuanying/epub3"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "epub3",
	Short: "Inspect and edit EPUB 3 publications",
	Long: `epub3 is a command-line tool for working with EPUB 3 publications:
inspecting the package document, creating fresh books, adding resources,
setting the cover image and repacking archives.`,
	SilenceUsage: true,
}

func logger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

var infoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "Print metadata, manifest and spine of an EPUB",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withChapters, _ := cmd.Flags().GetBool("chapters")

		book, err := epub3.Open(args[0], epub3.WithLogger(logger()))
		if err != nil {
			return err
		}
		defer book.Close()

		fmt.Printf("Identifier: %s\n", book.Identifier())
		fmt.Printf("Title:      %s\n", book.Title())
		fmt.Printf("Language:   %s\n", book.Language())
		fmt.Printf("Modified:   %s\n", book.Metadata().Modified())
		if cover := book.Cover(); cover != nil {
			fmt.Printf("Cover:      %s (%s)\n", cover.Href(), cover.MediaType())
		}

		fmt.Printf("\nManifest (%d items):\n", book.Manifest().Len())
		for _, item := range book.Manifest().Items() {
			fmt.Printf("  %-20s %-28s %s\n", item.ID(), item.MediaType(), item.Href())
		}

		fmt.Printf("\nSpine (%d itemrefs):\n", book.Spine().Len())
		for _, ref := range book.Spine().Itemrefs() {
			line := fmt.Sprintf("  %s", ref.Idref())
			if ref.Linear() == "no" {
				line += " (non-linear)"
			}
			if withChapters {
				if title := chapterTitle(ref); title != "" {
					line += ": " + title
				}
			}
			fmt.Println(line)
		}
		return nil
	},
}

// chapterTitle pulls the <title> of a spine document for display.
func chapterTitle(ref *epub3.Itemref) string {
	item, err := ref.Item()
	if err != nil {
		return ""
	}
	data, err := item.ReadBytes()
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a fresh EPUB with a skeleton package document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		title, _ := cmd.Flags().GetString("title")
		language, _ := cmd.Flags().GetString("language")

		book := epub3.New(epub3.WithLogger(logger()))
		if title != "" {
			book.SetTitle(title)
		}
		if language != "" {
			book.SetLanguage(language)
		}
		if err := book.Pack(output); err != nil {
			return err
		}
		fmt.Printf("Created: %s\n", output)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add FILE RESOURCE...",
	Short: "Add resource files to an EPUB's manifest",
	Long: `add copies each RESOURCE file into the publication, with the manifest
href taken from the file's base name. XHTML resources are appended to the
spine unless --no-spine is given.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		noSpine, _ := cmd.Flags().GetBool("no-spine")
		if output == "" {
			output = derivedOutput(args[0])
		}

		book, err := epub3.Open(args[0], epub3.WithLogger(logger()))
		if err != nil {
			return err
		}
		defer book.Close()

		for _, res := range args[1:] {
			href := filepath.Base(res)
			item, err := book.Manifest().Add(href, epub3.WithContentFile(res))
			if err != nil {
				return err
			}
			if !noSpine && strings.HasSuffix(item.MediaType(), "xhtml+xml") {
				if _, err := book.Spine().Add(item); err != nil {
					return err
				}
			}
			fmt.Printf("Added: %s (%s)\n", href, item.MediaType())
		}
		return book.Pack(output)
	},
}

var setCoverCmd = &cobra.Command{
	Use:   "set-cover FILE IMAGE",
	Short: "Embed an image as the publication cover",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		maxWidth, _ := cmd.Flags().GetInt("max-width")
		maxHeight, _ := cmd.Flags().GetInt("max-height")
		if output == "" {
			output = derivedOutput(args[0])
		}

		book, err := epub3.Open(args[0], epub3.WithLogger(logger()))
		if err != nil {
			return err
		}
		defer book.Close()

		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		item, err := book.SetCoverImage(filepath.Base(args[1]), f, epub3.CoverImageOptions{
			MaxWidth:  maxWidth,
			MaxHeight: maxHeight,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Cover: %s (%s)\n", item.Href(), item.MediaType())
		return book.Pack(output)
	},
}

var repackCmd = &cobra.Command{
	Use:   "repack IN OUT",
	Short: "Rewrite an EPUB as a normalized container",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := epub3.Open(args[0], epub3.WithLogger(logger()))
		if err != nil {
			return err
		}
		defer book.Close()
		if err := book.Pack(args[1]); err != nil {
			return err
		}
		fmt.Printf("Repacked: %s -> %s\n", args[0], args[1])
		return nil
	},
}

// derivedOutput names the default edit destination; packing over the source
// archive is not allowed.
func derivedOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "-edited" + ext
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log diagnostics to stderr")

	infoCmd.Flags().Bool("chapters", false, "Show chapter titles from spine documents")

	newCmd.Flags().StringP("output", "o", "book.epub", "Output file path")
	newCmd.Flags().String("title", "", "Publication title")
	newCmd.Flags().String("language", "", "Publication language")

	addCmd.Flags().StringP("output", "o", "", "Output file path (default: input with -edited suffix)")
	addCmd.Flags().Bool("no-spine", false, "Do not append XHTML resources to the spine")

	setCoverCmd.Flags().StringP("output", "o", "", "Output file path (default: input with -edited suffix)")
	setCoverCmd.Flags().Int("max-width", 0, "Scale the cover down to fit this width")
	setCoverCmd.Flags().Int("max-height", 0, "Scale the cover down to fit this height")

	rootCmd.AddCommand(infoCmd, newCmd, addCmd, setCoverCmd, repackCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

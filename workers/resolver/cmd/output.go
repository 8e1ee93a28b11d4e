package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/disiqueira/gotree/v3"
	"github.com/spf13/cobra"

	"pgmirror/workers/resolver/internal/domain/book"
	"pgmirror/workers/resolver/internal/usecase"
)

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printLines writes one "id<TAB>format<TAB>url" line per resolved URL
func printLines(w io.Writer, resolutions []usecase.Resolution) error {
	for _, res := range resolutions {
		for _, f := range book.Formats {
			for _, u := range res.URLs[f] {
				if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", res.BookID, f, u); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// renderTree groups URLs under their book and format. Formats the book
// declares without any listed file show as "(none)".
func renderTree(label string, resolutions []usecase.Resolution) string {
	root := gotree.New(label)
	for _, res := range resolutions {
		node := root.Add("book " + strconv.Itoa(res.BookID))
		for _, f := range book.Formats {
			urls, ok := res.URLs[f]
			if !ok {
				continue
			}
			formatNode := node.Add(string(f))
			if len(urls) == 0 {
				formatNode.Add("(none)")
			}
			for _, u := range urls {
				formatNode.Add(u)
			}
		}
	}
	return root.Print()
}

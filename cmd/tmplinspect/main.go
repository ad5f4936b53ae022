package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/tmplinspect/internal/combo"
	"github.com/dgallion1/tmplinspect/internal/document"
	"github.com/dgallion1/tmplinspect/internal/inspector"
	"github.com/dgallion1/tmplinspect/internal/outline"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
)

var flagFormat string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tmplinspect",
	Short:         "Find the template that rendered an HTML element",
	Long:          "tmplinspect reads HTML annotated with BEGIN/END template comments and reports which template produced a given element.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(regionsCmd)
	rootCmd.AddCommand(comboCmd)
}

var (
	flagXPath string
	flagID    string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <file|->",
	Short: "Show the template path and parent chain for an element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := loadDocument(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		return runResolve(cmd.OutOrStdout(), root, flagXPath, flagID, flagFormat)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&flagXPath, "xpath", "", "XPath of the target element")
	resolveCmd.Flags().StringVar(&flagID, "id", "", "id attribute of the target element")
	resolveCmd.MarkFlagsMutuallyExclusive("xpath", "id")
	resolveCmd.MarkFlagsOneRequired("xpath", "id")
}

var flagReport string

var regionsCmd = &cobra.Command{
	Use:   "regions <file|->",
	Short: "List every annotated region in a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := loadDocument(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		return runRegions(cmd.OutOrStdout(), root, flagReport, flagFormat)
	},
}

func init() {
	regionsCmd.Flags().StringVar(&flagReport, "report", "", "render a report instead: markdown|html")
}

var keyEvent combo.KeyEvent

var comboCmd = &cobra.Command{
	Use:   "combo <spec>",
	Short: "Check whether a key event satisfies a combo such as meta-shift-v",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCombo(cmd.OutOrStdout(), args[0], keyEvent, flagFormat)
	},
}

func init() {
	comboCmd.Flags().StringVar(&keyEvent.Key, "key", "", "pressed key, e.g. v")
	comboCmd.Flags().BoolVar(&keyEvent.Shift, "shift", false, "shift held")
	comboCmd.Flags().BoolVar(&keyEvent.Control, "control", false, "control held")
	comboCmd.Flags().BoolVar(&keyEvent.Alt, "alt", false, "alt held")
	comboCmd.Flags().BoolVar(&keyEvent.Meta, "meta", false, "meta/command held")
}

func runResolve(w io.Writer, root *html.Node, xpath, id, format string) error {
	var target *html.Node
	var err error
	if xpath != "" {
		target, err = document.Select(root, xpath)
	} else {
		target, err = document.ByID(root, id)
	}
	if err != nil {
		return err
	}

	insp, found := inspector.Inspect(target)
	if format == "json" {
		if !found {
			return writeJSON(w, map[string]any{"found": false})
		}
		return writeJSON(w, struct {
			Found bool `json:"found"`
			inspector.Inspection
		}{true, insp})
	}

	if !found {
		fmt.Fprintln(w, "no template region encloses this element")
		return nil
	}
	formatInspectionText(w, insp)
	return nil
}

func runRegions(w io.Writer, root *html.Node, report, format string) error {
	o := outline.Build(root)
	title := document.FindTitle(root)

	switch report {
	case "":
	case "markdown", "md":
		_, err := io.WriteString(w, o.Markdown(title))
		return err
	case "html":
		out, err := o.HTML(title)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("invalid report %q: must be markdown or html", report)
	}

	if format == "json" {
		return writeJSON(w, o)
	}
	formatOutlineText(w, o)
	return nil
}

func runCombo(w io.Writer, spec string, ev combo.KeyEvent, format string) error {
	match := combo.IsCombo(spec, ev)
	if format == "json" {
		return writeJSON(w, map[string]any{"combo": spec, "match": match})
	}
	fmt.Fprintln(w, match)
	return nil
}

// loadDocument parses the named file, or stdin when name is "-".
func loadDocument(stdin io.Reader, name string) (*html.Node, error) {
	if name == "-" {
		return document.Parse(stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", name)
		}
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()
	return document.Parse(f)
}

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("invalid format %q: must be json or text", format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

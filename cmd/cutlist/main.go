// Command cutlist optimizes cut lists from the terminal. It reads a CSV or
// Excel cut list, prints the boards to buy and can write a shopping list.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/cutlist-optimizer/internal/application"
	"github.com/eugenenazirov/cutlist-optimizer/internal/catalog"
	"github.com/eugenenazirov/cutlist-optimizer/internal/export"
	"github.com/eugenenazirov/cutlist-optimizer/internal/importer"
	"github.com/eugenenazirov/cutlist-optimizer/internal/logging"
	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
	"github.com/eugenenazirov/cutlist-optimizer/internal/templates"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "cutlist:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	app := kingpin.New("cutlist", "Cut-List Optimizer - plan board purchases for woodworking projects")
	catalogFile := app.Flag("catalog", "Path to a YAML product catalog replacing the built-in one").String()
	logLevel := app.Flag("log-level", "Log level: debug, info, warn or error").Default("warn").String()

	optimizeCmd := app.Command("optimize", "Optimize a CSV or XLSX cut list")
	inputFile := optimizeCmd.Arg("file", "Cut list file (.csv or .xlsx)").Required().String()
	asJSON := optimizeCmd.Flag("json", "Print the optimization result as JSON").Bool()
	shoppingOut := optimizeCmd.Flag("shopping-list", "Write a shopping list to this file (.csv, .xlsx or .pdf)").String()
	title := optimizeCmd.Flag("title", "Project title for the shopping list").String()

	materialsCmd := app.Command("materials", "List catalog products")
	material := materialsCmd.Flag("material", "Only list products of this material").String()

	templatesCmd := app.Command("templates", "List starter project templates")

	command, err := app.Parse(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(*logLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	cat, err := application.LoadCatalog(*catalogFile)
	if err != nil {
		return err
	}

	switch command {
	case optimizeCmd.FullCommand():
		return runOptimize(stdout, logger, cat, optimizeOptions{
			input:        *inputFile,
			json:         *asJSON,
			shoppingList: *shoppingOut,
			title:        *title,
		})
	case materialsCmd.FullCommand():
		return printProducts(stdout, cat, *material)
	case templatesCmd.FullCommand():
		return printTemplates(stdout, templates.Default())
	}
	return fmt.Errorf("unknown command %q", command)
}

type optimizeOptions struct {
	input        string
	json         bool
	shoppingList string
	title        string
}

func runOptimize(stdout io.Writer, logger *zap.Logger, cat *catalog.Catalog, opts optimizeOptions) error {
	imported, err := importFile(opts.input)
	if err != nil {
		return err
	}
	for _, w := range imported.Warnings {
		logger.Warn("import warning", zap.String("file", opts.input), zap.String("warning", w))
	}
	for _, e := range imported.Errors {
		logger.Warn("import row skipped", zap.String("file", opts.input), zap.String("error", e))
	}
	if len(imported.Items) == 0 {
		return fmt.Errorf("no cut-list items could be read from %s", opts.input)
	}

	result := optimizer.New(cat).Optimize(imported.Items)

	if opts.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else if err := printResult(stdout, result); err != nil {
		return err
	}

	if opts.shoppingList == "" {
		return nil
	}
	title := opts.title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(opts.input), filepath.Ext(opts.input))
	}
	list := export.BuildShoppingList(title, imported.Items, result)
	if err := writeShoppingList(opts.shoppingList, list); err != nil {
		return err
	}
	logger.Info("shopping list written", zap.String("path", opts.shoppingList), zap.Int("lines", len(list.Lines)))
	return nil
}

func importFile(path string) (importer.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return importer.Result{}, fmt.Errorf("read cut list: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return importer.ImportExcel(bytes.NewReader(data)), nil
	}
	return importer.ImportCSV(bytes.NewReader(data)), nil
}

func writeShoppingList(path string, list export.ShoppingList) error {
	var write func(io.Writer, export.ShoppingList) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = export.WriteCSV
	case ".xlsx":
		write = export.WriteXLSX
	case ".pdf":
		write = export.WritePDF
	default:
		return fmt.Errorf("unsupported shopping list format %q: use .csv, .xlsx or .pdf", filepath.Ext(path))
	}

	var buf bytes.Buffer
	if err := write(&buf, list); err != nil {
		return fmt.Errorf("render shopping list: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write shopping list: %w", err)
	}
	return nil
}

func printResult(w io.Writer, result optimizer.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MATERIAL\tTHICKNESS\tPRODUCT\tBOARDS\tWASTE\tFIT")
	for _, u := range result.BoardUsage {
		fmt.Fprintf(tw, "%s\t%s\"\t%s\t%d\t%.1f%%\t%s\n",
			u.Material, strconv.FormatFloat(u.Thickness, 'f', -1, 64), u.Product.Name, u.BoardsNeeded, u.WastePercentage, u.Fit)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	fmt.Fprintf(w, "\nTotal boards:    %d\n", result.TotalBoards)
	fmt.Fprintf(w, "Waste:           %.1f%%\n", result.WastePercentage)
	fmt.Fprintf(w, "Estimated cost:  $%s\n", result.EstimatedCost.StringFixed(2))
	if len(result.Suggestions) > 0 {
		fmt.Fprintln(w, "\nSuggestions:")
		for _, s := range result.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	return nil
}

func printProducts(w io.Writer, cat *catalog.Catalog, material string) error {
	products := cat.AllProducts()
	if material != "" {
		products = cat.ProductsByMaterial(material)
		if len(products) == 0 {
			return errors.New("no products of material " + strconv.Quote(material) +
				"; available: " + strings.Join(cat.Materials(), ", "))
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMATERIAL\tDIMENSIONS\tPRICE\tSKU")
	for _, p := range products {
		d := p.Dimensions
		fmt.Fprintf(tw, "%s\t%s\t%s\t$%s\t%s\n",
			p.ID, p.Material, export.FormatDimensions(d.Length, d.Width, d.Thickness), p.Price.StringFixed(2), p.SKU)
	}
	return tw.Flush()
}

func printTemplates(w io.Writer, lib *templates.Library) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tDIFFICULTY\tTIME\tPARTS")
	for _, t := range lib.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			t.ID, t.Name, t.Category, t.Difficulty, t.EstimatedTime, len(t.CutList))
	}
	return tw.Flush()
}

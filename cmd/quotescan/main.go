package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quotescan/internal"
	"quotescan/internal/catalog"
	"quotescan/internal/config"
	"quotescan/internal/pipeline"
	"quotescan/internal/quote"
	"quotescan/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	vocab, err := catalog.LoadVocabulary(cfg.VocabPath)
	must(err)
	loader := catalog.NewLoader(db, vocab)

	cmd := os.Args[1]
	switch cmd {
	case "catalog:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "catalog xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		count, err := catalog.ImportXLSX(*file, db)
		must(err)
		must(db.SetMetadata("catalog_imported_at", time.Now().UTC().Format(time.RFC3339)))
		fmt.Printf("catalog import complete: %d products\n", count)
	case "catalog:deactivate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int("id", 0, "product id to deactivate")
		_ = fs.Parse(os.Args[2:])
		if *id <= 0 {
			must(fmt.Errorf("--id is required"))
		}
		must(db.DeactivateProduct(*id))
		fmt.Printf("product %d deactivated\n", *id)
	case "scan:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path or raw text")
		inType := fs.String("type", "text", "text|pdf|html")
		output := fs.String("output", "", "optional review sheet xlsx path")
		ocrConfidence := fs.Float64("ocr-confidence", -1, "optional OCR confidence passthrough")
		allAlts := fs.Bool("all-alternatives", false, "attach suggestion tiers even for accepted matches")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}

		var opts []pipeline.MatcherOption
		if *allAlts {
			opts = append(opts, pipeline.WithAllAlternatives())
		}
		svc := pipeline.NewReconcileService(db, loader, cfg, opts...)

		in := pipeline.Input{Type: internal.InputType(*inType), Value: *input}
		if *ocrConfidence >= 0 {
			c := *ocrConfidence
			in.OCRConfidence = &c
		}
		result, err := svc.Run(context.Background(), in)
		must(err)
		fmt.Printf("scan %d done trace=%s lines=%d matched=%d review=%d nomatch=%d\n",
			result.ScanID, result.TraceID, len(result.Reports), result.Matched, result.Review, result.NoMatch)

		if strings.TrimSpace(*output) != "" {
			must(pipeline.ExportReportsToXLSX(result.Reports, *output))
			fmt.Printf("review sheet written to %s\n", *output)
		}
	case "quote:create":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		scanID := fs.Int64("scan", 0, "scan id to confirm")
		includeReview := fs.Bool("include-review", false, "include lines flagged for review")
		_ = fs.Parse(os.Args[2:])
		if *scanID == 0 {
			must(fmt.Errorf("--scan is required"))
		}

		reports, err := db.GetScanReports(*scanID)
		must(err)
		if len(reports) == 0 {
			must(fmt.Errorf("no reconciled lines for scan %d", *scanID))
		}

		snap, err := loader.Load(context.Background())
		must(err)

		lines := []quote.LineInput{}
		for _, report := range reports {
			if report.ProductID == nil {
				continue
			}
			if report.RequiresReview && !*includeReview {
				continue
			}
			lines = append(lines, quote.LineInput{ProductID: report.ProductID, Qty: report.Qty})
		}

		svc := quote.NewService(db, quote.NewNumberGenerator(db), cfg.QuoteSaveRetries)
		q, err := svc.Create(context.Background(), snap, lines)
		must(err)
		fmt.Printf("quotation %s created: items=%d subtotal=%.2f grandTotal=%.2f\n",
			q.Number, len(q.Items), q.Subtotal, q.GrandTotal)
	case "quote:status":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		number := fs.String("number", "", "quotation number")
		to := fs.String("to", "", "sent|approved|rejected|completed|revert")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*number) == "" || strings.TrimSpace(*to) == "" {
			must(fmt.Errorf("--number and --to are required"))
		}

		svc := quote.NewService(db, quote.NewNumberGenerator(db), cfg.QuoteSaveRetries)
		var q internal.Quotation
		if *to == "revert" {
			q, err = svc.Revert(*number)
		} else {
			q, err = svc.Transition(*number, internal.QuotationStatus(*to))
		}
		must(err)
		fmt.Printf("quotation %s is now %s\n", q.Number, q.Status)
	case "quote:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		number := fs.String("number", "", "quotation number")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*number) == "" {
			must(fmt.Errorf("--number is required"))
		}
		if strings.TrimSpace(*out) == "" {
			*out = filepath.Join(cfg.OutputDir, *number+".xlsx")
		}

		q, err := db.GetQuotationByNumber(*number)
		must(err)
		if q == nil {
			must(fmt.Errorf("quotation %s not found", *number))
		}
		must(pipeline.ExportQuotationToXLSX(*q, *out))
		fmt.Printf("quotation %s exported to %s\n", q.Number, *out)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: quotescan <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:import --file=catalog.xlsx")
	fmt.Println("  catalog:deactivate --id=12")
	fmt.Println("  scan:run --input=... --type=text|pdf|html [--output=review.xlsx] [--ocr-confidence=0.9] [--all-alternatives]")
	fmt.Println("  quote:create --scan=1 [--include-review]")
	fmt.Println("  quote:status --number=QT-20260829-0001 --to=sent|approved|rejected|completed|revert")
	fmt.Println("  quote:export --number=QT-20260829-0001 [--out=./out/quote.xlsx]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// Command cellcount counts cells in a dish photograph and prints their
// positions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"cell-counter/internal/client"
	"cell-counter/internal/config"
	"cell-counter/internal/imaging"
	"cell-counter/internal/logging"
	"cell-counter/internal/rig"
	"cell-counter/internal/storage"
	"cell-counter/pkg/geometry"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	if opts.imagePath == "" {
		fmt.Println("Usage: cellcount -image <path> [-config config.yaml] [-json]")
		fmt.Println("         local:  [-margin 50] [-threshold 150] [-annotate out.tiff] [-preview small.tiff] [-save] [-mode Color|UV]")
		fmt.Println("         remote: -remote host:port (calibration and output flags are rejected)")
		os.Exit(1)
	}

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if opts.margin >= 0 {
		cfg.Detection.InnerMargin = opts.margin
	}
	if opts.threshold >= 0 {
		cfg.Detection.Cells = cfg.Detection.Cells.WithThreshold(opts.threshold)
	}
	if opts.mode != "" {
		m, err := rig.ParseMode(opts.mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		cfg.Rig.Mode = m
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if opts.remote != "" {
		if err := countRemote(opts.remote, opts.imagePath, opts.asJSON); err != nil {
			fmt.Fprintf(os.Stderr, "Remote count failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	img, err := imaging.Load(opts.imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer img.Close()

	if !opts.asJSON {
		fmt.Printf("Loaded image: %dx%d pixels\n", img.Cols(), img.Rows())
		fmt.Printf("Inner margin: %d px\n", cfg.Detection.InnerMargin)
		fmt.Printf("Radius band: %.4f - %.4f of height\n",
			cfg.Detection.ROI.MinRadiusRatio, cfg.Detection.ROI.MaxRadiusRatio)
		fmt.Printf("Score threshold: %.1f\n", cfg.Detection.Cells.ScoreThreshold)
		fmt.Printf("Area range: (%d, %d) px, max axis ratio %.1f\n",
			cfg.Detection.Cells.MinArea, cfg.Detection.Cells.MaxArea, cfg.Detection.Cells.MaxAxisRatio)
	}

	res, err := cfg.NewCounter(log).Count(img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Detection failed: %v\n", err)
		os.Exit(1)
	}

	if opts.asJSON {
		printJSON(res.Cells, &res.Circle, res.DishFound)
	} else {
		if res.DishFound {
			fmt.Printf("\nDish: center (%d, %d) radius %d\n", res.Circle.Col, res.Circle.Row, res.Circle.Radius)
		} else {
			fmt.Printf("\nNo foreground, dish not located\n")
		}
		printTable(res.Cells)
		fmt.Printf("Time: %v\n", res.Duration)
	}

	if opts.annotatePath == "" && opts.previewPath == "" && !opts.save {
		return
	}

	annotated := imaging.Annotate(img, res.Cells)
	defer annotated.Close()

	if opts.annotatePath != "" {
		if err := imaging.WriteTIFF(opts.annotatePath, annotated); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if opts.previewPath != "" {
		preview := imaging.Preview(annotated, cfg.Rig.DisplayResolution)
		err := imaging.WriteTIFF(opts.previewPath, preview)
		preview.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if opts.save {
		saveCapture(cfg, log, img, annotated)
	}
}

// saveCapture names the files after the configured illumination mode.
func saveCapture(cfg config.Config, log *zap.Logger, img, annotated gocv.Mat) {
	store := storage.New(cfg.Storage.OutputDir, cfg.Storage.MediaRoot, log)
	saved, err := store.SaveCapture("", cfg.Rig.Mode, img, annotated)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Saving failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Saved %s\n", saved.Image)
}

type options struct {
	imagePath    string
	configPath   string
	margin       int
	threshold    float64
	annotatePath string
	previewPath  string
	save         bool
	mode         string
	remote       string
	asJSON       bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	o := &options{}
	fs.StringVar(&o.imagePath, "image", "", "Path to dish image (TIFF, PNG, or JPEG)")
	fs.IntVar(&o.margin, "margin", -1, "Inner margin in pixels (default from config, 50)")
	fs.Float64Var(&o.threshold, "threshold", -1, "Foreground score threshold (default from config, 150)")
	fs.StringVar(&o.configPath, "config", "", "Path to config.yaml")
	fs.StringVar(&o.annotatePath, "annotate", "", "Write an annotated TIFF to this path")
	fs.StringVar(&o.previewPath, "preview", "", "Write a display-sized annotated TIFF to this path")
	fs.BoolVar(&o.save, "save", false, "Save the capture and its annotation to the USB device")
	fs.StringVar(&o.mode, "mode", "", "Illumination mode naming saved files: Color or UV (default from config)")
	fs.StringVar(&o.remote, "remote", "", "Count on a remote service (host:port) instead of locally")
	fs.BoolVar(&o.asJSON, "json", false, "Print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if o.remote != "" {
		if local := localOnlyFlags(fs); len(local) > 0 {
			return nil, fmt.Errorf("-remote cannot be combined with %s", strings.Join(local, ", "))
		}
	}
	return o, nil
}

// localOnlyFlags lists the set flags that only apply to a local count.
func localOnlyFlags(fs *flag.FlagSet) []string {
	var set []string
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "margin", "threshold", "annotate", "preview", "save", "mode":
			set = append(set, "-"+f.Name)
		}
	})
	return set
}

func countRemote(addr, path string, asJSON bool) error {
	resp, err := client.New(addr, 0).CountFile(context.Background(), path)
	if err != nil {
		return err
	}
	if asJSON {
		printJSON(resp.Cells, resp.Circle, resp.Circle != nil)
		return nil
	}
	fmt.Printf("Job %s (%d ms)\n", resp.ID, resp.Millis)
	printTable(resp.Cells)
	return nil
}

func printTable(cells []geometry.Cell) {
	fmt.Printf("\nDetected %d cells:\n", len(cells))
	fmt.Printf("%6s %8s %8s\n", "#", "X", "Y")
	fmt.Println(strings.Repeat("-", 24))
	for i, c := range cells {
		fmt.Printf("%6d %8d %8d\n", i+1, c.X, c.Y)
	}
	fmt.Printf("\nTotal: %d cells detected\n", len(cells))
}

func printJSON(cells []geometry.Cell, circle *geometry.Circle, found bool) {
	out := struct {
		Count  int              `json:"count"`
		Cells  []geometry.Cell  `json:"cells"`
		Circle *geometry.Circle `json:"circle,omitempty"`
	}{Count: len(cells), Cells: cells}
	if found {
		out.Circle = circle
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"bodycheck/internal/capture"
	"bodycheck/internal/imaging"
	"bodycheck/internal/models"
	"bodycheck/internal/report"
)

// Re-renders report.html from an analysis.json written by the assess
// command, picking up the step images stored next to it.
func main() {
	jsonPath := flag.String("json", "", "Path to analysis.json file")
	flag.Parse()

	if *jsonPath == "" {
		fmt.Println("Usage: renderreport -json <path/to/analysis.json>")
		return
	}

	dataBytes, err := os.ReadFile(*jsonPath)
	if err != nil {
		log.Fatalf("Error reading JSON file: %v", err)
	}
	var r models.BodyReport
	if err := json.Unmarshal(dataBytes, &r); err != nil {
		log.Fatalf("Error parsing JSON: %v", err)
	}

	outputDir := filepath.Dir(*jsonPath)
	var images []models.CapturedImage
	for _, step := range models.CameraSteps() {
		path := findImage(outputDir, strings.ToLower(step.String()))
		if path == "" {
			continue
		}
		dataURL, err := loadDataURL(path)
		if err != nil {
			log.Printf("Warning: Could not load %s: %v", path, err)
			continue
		}
		images = append(images, models.CapturedImage{Step: step, DataURL: dataURL})
	}

	reportPath := filepath.Join(outputDir, "report.html")
	out, err := os.Create(reportPath)
	if err != nil {
		log.Fatalf("Error creating report file: %v", err)
	}
	defer out.Close()
	if err := report.Render(out, report.View{Report: r, Images: images}); err != nil {
		log.Fatalf("Error rendering report: %v", err)
	}
	fmt.Printf("HTML Report generated at: %s\n", reportPath)
}

func findImage(dir, prefix string) string {
	exts := []string{".jpg", ".jpeg", ".png", ".JPG", ".PNG"}
	for _, ext := range exts {
		path := filepath.Join(dir, prefix+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func loadDataURL(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return "", err
	}
	dataURL, err := imaging.EncodeDataURL(img, capture.FrameQuality)
	if err != nil {
		return "", err
	}
	return imaging.Resize(dataURL, imaging.AnalysisWidth), nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bodycheck/internal/analysis"
	"bodycheck/internal/assessment"
	"bodycheck/internal/capture"
	"bodycheck/internal/config"
	"bodycheck/internal/events"
	"bodycheck/internal/history"
	"bodycheck/internal/models"
	"bodycheck/internal/report"
	"bodycheck/internal/storage"
)

// stepFlags maps each camera step to its image flag.
var stepFlags = []struct {
	step models.Step
	name string
}{
	{models.StepPostureFront, "front"},
	{models.StepPostureSide, "side"},
	{models.StepBalanceTest, "balance"},
	{models.StepArmRaiseTest, "arm"},
	{models.StepFlexibilityTest, "flexibility"},
	{models.StepStrengthSquat, "squat"},
	{models.StepStrengthPushup, "pushup"},
	{models.StepFaceAnalysis, "face"},
}

func main() {
	cfg := config.Load()

	paths := make(map[models.Step]*string, len(stepFlags))
	for _, f := range stepFlags {
		paths[f.step] = flag.String(f.name, f.name+".jpg", fmt.Sprintf("Path to the %s image", f.step.Title()))
	}
	namePtr := flag.String("name", "", "Name of the person assessed")
	genderPtr := flag.String("gender", "other", "Gender: male, female or other")
	agePtr := flag.Int("age", 40, "Age in years")
	modelPtr := flag.String("model", "", "Model to use (overrides env). Examples: gemini-3-flash-preview, gpt-4o-mini")
	providerPtr := flag.String("provider", "", "Provider: gemini or openai (overrides env)")
	noSave := flag.Bool("no-save", false, "Do not add the result to the history store")
	flag.Parse()

	if *providerPtr != "" {
		cfg.AIProvider = strings.ToLower(*providerPtr)
	}
	if *modelPtr != "" {
		cfg.GeminiModel = *modelPtr
		cfg.OpenAIModel = *modelPtr
	}

	ctx := context.Background()
	analyzer, closeAnalyzer, err := analysis.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer closeAnalyzer()

	var store assessment.History = discardHistory{}
	if !*noSave {
		kv, closeStorage, err := storage.Open(ctx, cfg)
		if err != nil {
			log.Fatalf("Error opening storage: %v", err)
		}
		defer closeStorage()
		store = history.New(kv, cfg.StorageImageWidth)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	outputDir := filepath.Join(cfg.OutputDir, timestamp)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatalf("Error creating output directory: %v", err)
	}
	fmt.Printf("Created output directory: %s\n", outputDir)

	media := capture.NewFileMedia()
	seq := assessment.New(assessment.Deps{
		Analyzer: analyzer,
		History:  store,
		// Files are not previews; the face image is used as taken.
		Camera:        capture.NewProvider(media, capture.WithoutMirroring()),
		Events:        events.PublisherFunc(logEvent),
		Dispatch:      func(f func()) { f() },
		AnalysisWidth: cfg.AnalysisImageWidth,
	})

	if err := seq.Begin(); err != nil {
		log.Fatal(err)
	}
	user := models.UserInfo{Name: *namePtr, Gender: models.Gender(*genderPtr), Age: *agePtr}
	if err := seq.SubmitUserInfo(user); err != nil {
		log.Fatalf("Invalid user info: %v", err)
	}

	fmt.Println("Starting Body Assessment (Go)...")
	fmt.Printf("Using provider: %s\n", cfg.AIProvider)

	for _, f := range stepFlags {
		path := *paths[f.step]
		if err := media.Load(path); err != nil {
			log.Fatalf("Error loading %s image %s: %v", f.name, path, err)
		}
		copyFile(path, filepath.Join(outputDir, strings.ToLower(f.step.String())+filepath.Ext(path)))
		if err := seq.DismissInstruction(ctx); err != nil {
			log.Fatalf("Error preparing %s: %v", f.step, err)
		}
		if err := seq.Capture(); err != nil {
			log.Fatalf("Error capturing %s: %v", f.step, err)
		}
		fmt.Printf("Captured %s\n", f.step.Title())
	}

	view, err := seq.ReportView()
	if err != nil {
		log.Fatalf("Analysis failed: %s", seq.Snapshot().LastError)
	}

	resultText, err := json.MarshalIndent(view.Report, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding report: %v", err)
	}

	fmt.Println("\n==================================================")
	fmt.Println("ANALYSIS RESULT")
	fmt.Println("==================================================")
	fmt.Println(string(resultText))
	fmt.Println("==================================================")

	resultPath := filepath.Join(outputDir, "analysis.json")
	if err := os.WriteFile(resultPath, resultText, 0644); err != nil {
		log.Printf("Error saving analysis result: %v", err)
	} else {
		fmt.Printf("Analysis saved to: %s\n", resultPath)
	}

	reportPath := filepath.Join(outputDir, "report.html")
	out, err := os.Create(reportPath)
	if err != nil {
		log.Fatalf("Error creating report file: %v", err)
	}
	defer out.Close()
	if err := report.Render(out, view); err != nil {
		log.Fatalf("Error rendering report: %v", err)
	}
	fmt.Printf("HTML Report generated at: %s\n", reportPath)
}

func logEvent(e events.Event) {
	switch e.Type {
	case "step", "error":
		log.Printf("%s: %v", e.Type, e.Data)
	}
}

// discardHistory stands in for the store when -no-save is given.
type discardHistory struct{}

func (discardHistory) Save(context.Context, models.BodyReport, []models.CapturedImage) error {
	return nil
}

func (discardHistory) Get(context.Context, string) (models.MemberRecord, error) {
	return models.MemberRecord{}, history.ErrNotFound
}

func copyFile(src, dstPath string) {
	srcFile, err := os.Open(src)
	if err != nil {
		log.Printf("Warning: Could not open source image %s: %v", src, err)
		return
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dstPath)
	if err != nil {
		log.Printf("Warning: Could not create destination image %s: %v", dstPath, err)
		return
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		log.Printf("Warning: Could not copy image content: %v", err)
	}
}

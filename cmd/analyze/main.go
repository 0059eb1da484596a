// Command analyze runs one image or symptoms analysis against the configured
// model and prints the normalized result as JSON.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"intake/internal/analysis"
	"intake/internal/domain"
	"intake/internal/infra"
	"intake/internal/quota"
)

func main() {
	configPath := flag.String("config", "", "optional config file")
	imagePath := flag.String("image", "", "path to an image to classify")
	symptoms := flag.String("symptoms", "", "symptom transcript to categorize")
	variant := flag.String("variant", "", "analysis variant (defaults to the configured one)")
	flag.Parse()

	if (*imagePath == "") == (*symptoms == "") {
		fmt.Fprintln(os.Stderr, "usage: analyze -image <file> | -symptoms <text> [-variant name]")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel).Output(os.Stderr)

	model, err := analysis.NewModel(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build model client")
	}
	inv := analysis.NewInvoker(analysis.Options{
		Model: model,
		Quota: quota.NewTracker(quota.Options{
			SoftLimit:     cfg.QuotaSoftLimit,
			ProviderLimit: cfg.QuotaProviderLimit,
		}),
		Logger:          logger,
		ImageVariant:    domain.ImageVariant(cfg.ImageAnalysisVariant),
		SymptomsVariant: domain.SymptomsVariant(cfg.SymptomsAnalysisVariant),
	})

	ctx := context.Background()
	var result any
	if *imagePath != "" {
		dataURL, err := readDataURL(*imagePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *imagePath).Msg("failed to read image")
		}
		result, err = inv.AnalyzeImage(ctx, analysis.ImageRequest{ImageData: dataURL, Variant: *variant})
		if err != nil {
			logger.Fatal().Err(err).Msg("image analysis failed")
		}
	} else {
		result, err = inv.AnalyzeSymptoms(ctx, analysis.SymptomsRequest{Symptoms: *symptoms, Variant: *variant})
		if err != nil {
			logger.Fatal().Err(err).Msg("symptoms analysis failed")
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		logger.Fatal().Err(err).Msg("failed to encode result")
	}
}

// readDataURL encodes the file the way a browser FileReader would.
func readDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%s is not an image (detected %s)", path, mimeType)
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}

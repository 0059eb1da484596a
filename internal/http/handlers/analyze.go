package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"intake/internal/analysis"
	"intake/internal/domain"
	"intake/internal/quota"
)

// imageData is decoded loosely so a non-string value reads as missing
// rather than as a malformed body.
type analyzeImageRequest struct {
	ImageData any    `json:"imageData"`
	Variant   string `json:"variant"`
}

type analyzeSymptomsRequest struct {
	Symptoms any    `json:"symptoms"`
	Variant  string `json:"variant"`
}

type quotaExceededResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Details   string `json:"details"`
	ResetTime string `json:"resetTime"`
}

func (a *App) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req analyzeImageRequest
	if !a.decode(w, r, &req) {
		return
	}
	imageData, _ := req.ImageData.(string)
	res, err := a.analyzer.AnalyzeImage(r.Context(), analysis.ImageRequest{ImageData: imageData, Variant: req.Variant})
	if err != nil {
		a.analysisError(w, err, "Failed to analyze image")
		return
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) AnalyzeSymptoms(w http.ResponseWriter, r *http.Request) {
	var req analyzeSymptomsRequest
	if !a.decode(w, r, &req) {
		return
	}
	symptoms, _ := req.Symptoms.(string)
	res, err := a.analyzer.AnalyzeSymptoms(r.Context(), analysis.SymptomsRequest{Symptoms: symptoms, Variant: req.Variant})
	if err != nil {
		a.analysisError(w, err, "Failed to analyze symptoms")
		return
	}
	a.json(w, http.StatusOK, res)
}

// decode reads a JSON body capped at the configured limit. An empty body is
// treated as an empty object so the missing-field validation answers it.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if a.bodyLimit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.bodyLimit)
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		a.error(w, http.StatusRequestEntityTooLarge, "Request body too large", fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
		return false
	}
	a.error(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
	return false
}

func (a *App) analysisError(w http.ResponseWriter, err error, failure string) {
	var verr *domain.ValidationError
	var exceeded *quota.ExceededError
	switch {
	case errors.As(err, &verr):
		a.json(w, http.StatusBadRequest, map[string]string{"error": verr.Message})
	case errors.As(err, &exceeded):
		a.logger.Warn().Int("used", exceeded.Usage.Used).Int("limit", exceeded.Usage.Limit).Msg("analysis: daily quota exceeded")
		a.json(w, http.StatusTooManyRequests, quotaExceededResponse{
			Error:   "Daily API quota exceeded",
			Message: fmt.Sprintf("You have reached the daily limit of %d requests. Please try again tomorrow.", exceeded.Usage.Limit),
			Details: fmt.Sprintf("The model provider allows %d requests per day. We limit to %d to prevent service interruption.",
				exceeded.Usage.ProviderLimit, exceeded.Usage.Limit),
			ResetTime: exceeded.Usage.ResetTime,
		})
	default:
		a.error(w, http.StatusInternalServerError, failure, err.Error())
	}
}

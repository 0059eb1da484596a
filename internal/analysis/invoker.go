// Package analysis guards, invokes and normalizes multimodal model calls for
// document images and symptom transcripts.
package analysis

import (
	"context"
	"regexp"
	"strings"

	"intake/internal/domain"
	"intake/internal/infra"
	"intake/internal/quota"
)

// Model is a single multimodal text generation backend.
type Model interface {
	Name() string
	Generate(ctx context.Context, req domain.ModelRequest) (string, error)
}

// Options wires an Invoker.
type Options struct {
	Model           Model
	Quota           *quota.Tracker
	Logger          infra.Logger
	ImageVariant    domain.ImageVariant
	SymptomsVariant domain.SymptomsVariant
}

// Invoker runs validate -> quota check -> model call -> increment -> normalize.
type Invoker struct {
	model           Model
	quota           *quota.Tracker
	logger          infra.Logger
	imageVariant    domain.ImageVariant
	symptomsVariant domain.SymptomsVariant
}

type ImageRequest struct {
	ImageData string
	Variant   string
}

type SymptomsRequest struct {
	Symptoms string
	Variant  string
}

const defaultImageMimeType = "image/jpeg"

var dataURLPrefix = regexp.MustCompile(`^data:image/([a-z]+);base64,`)

func NewInvoker(opts Options) *Invoker {
	imageVariant := opts.ImageVariant
	if imageVariant == "" {
		imageVariant = domain.ImageVariantDetailed
	}
	symptomsVariant := opts.SymptomsVariant
	if symptomsVariant == "" {
		symptomsVariant = domain.SymptomsVariantBasic
	}
	return &Invoker{
		model:           opts.Model,
		quota:           opts.Quota,
		logger:          opts.Logger,
		imageVariant:    imageVariant,
		symptomsVariant: symptomsVariant,
	}
}

// AnalyzeImage classifies a base64 image, with or without a data-URL prefix.
func (inv *Invoker) AnalyzeImage(ctx context.Context, req ImageRequest) (domain.ImageResult, error) {
	if req.ImageData == "" {
		return domain.ImageResult{}, &domain.ValidationError{Message: "Image data is required"}
	}
	variant, err := domain.ParseImageVariant(req.Variant, inv.imageVariant)
	if err != nil {
		return domain.ImageResult{}, &domain.ValidationError{Message: err.Error(), Err: err}
	}
	if err := inv.quota.Check(); err != nil {
		return domain.ImageResult{}, err
	}

	image := splitDataURL(req.ImageData)
	raw, err := inv.generate(ctx, domain.ModelRequest{Prompt: ImagePrompt(variant), Image: &image})
	if err != nil {
		return domain.ImageResult{}, err
	}

	out := NormalizeImage(raw, variant)
	if out.Source == SourceHeuristic {
		inv.logger.Warn().Err(out.ParseErr).Str("variant", string(variant)).Msg("analysis: model reply was not JSON; used keyword extraction")
	}
	return out.Result, nil
}

// AnalyzeSymptoms categorizes a free-text symptom transcript.
func (inv *Invoker) AnalyzeSymptoms(ctx context.Context, req SymptomsRequest) (domain.SymptomsResult, error) {
	if strings.TrimSpace(req.Symptoms) == "" {
		return domain.SymptomsResult{}, &domain.ValidationError{Message: "Symptoms text is required"}
	}
	variant, err := domain.ParseSymptomsVariant(req.Variant, inv.symptomsVariant)
	if err != nil {
		return domain.SymptomsResult{}, &domain.ValidationError{Message: err.Error(), Err: err}
	}
	if err := inv.quota.Check(); err != nil {
		return domain.SymptomsResult{}, err
	}

	raw, err := inv.generate(ctx, domain.ModelRequest{Prompt: SymptomsPrompt(variant, req.Symptoms)})
	if err != nil {
		return domain.SymptomsResult{}, err
	}

	out := NormalizeSymptoms(raw, variant)
	if out.Source == SourceHeuristic {
		inv.logger.Warn().Err(out.ParseErr).Str("variant", string(variant)).Msg("analysis: model reply was not JSON; used keyword extraction")
	}
	return out.Result, nil
}

// generate calls the model detached from client cancellation and counts the
// call only once it has succeeded.
func (inv *Invoker) generate(ctx context.Context, req domain.ModelRequest) (string, error) {
	raw, err := inv.model.Generate(context.WithoutCancel(ctx), req)
	if err != nil {
		inv.logger.Error().Err(err).Str("provider", inv.model.Name()).Msg("analysis: model invocation failed")
		return "", &domain.ModelError{Provider: inv.model.Name(), Err: err}
	}
	used := inv.quota.Increment()
	inv.logger.Info().
		Str("provider", inv.model.Name()).
		Int("used", used).
		Int("limit", inv.quota.SoftLimit()).
		Msg("analysis: model invocation counted")
	return raw, nil
}

// splitDataURL strips a "data:image/<type>;base64," prefix and reports the
// MIME type it named. Bare base64 is assumed to be JPEG.
func splitDataURL(data string) domain.InlineImage {
	m := dataURLPrefix.FindStringSubmatch(data)
	if m == nil {
		return domain.InlineImage{MimeType: defaultImageMimeType, Data: data}
	}
	return domain.InlineImage{MimeType: "image/" + m[1], Data: data[len(m[0]):]}
}

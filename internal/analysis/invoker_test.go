package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"intake/internal/domain"
	"intake/internal/infra"
	"intake/internal/quota"
)

type fakeModel struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	requests []domain.ModelRequest
	ctxErr   error
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Generate(ctx context.Context, req domain.ModelRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.requests = append(m.requests, req)
	m.ctxErr = ctx.Err()
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func fixedClock() func() time.Time {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.Local)
	return func() time.Time { return now }
}

func newTestInvoker(model Model, tracker *quota.Tracker) *Invoker {
	return NewInvoker(Options{
		Model:  model,
		Quota:  tracker,
		Logger: infra.NopLogger(),
	})
}

func TestAnalyzeImageValidatesBeforeQuota(t *testing.T) {
	tracker := quota.NewTracker(quota.Options{SoftLimit: 1, Now: fixedClock()})
	tracker.Increment()
	model := &fakeModel{reply: "{}"}
	inv := newTestInvoker(model, tracker)

	_, err := inv.AnalyzeImage(context.Background(), ImageRequest{})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Message != "Image data is required" {
		t.Fatalf("err = %v, want validation error", err)
	}
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("validation error should wrap ErrInvalidPayload")
	}

	_, err = inv.AnalyzeSymptoms(context.Background(), SymptomsRequest{})
	if !errors.As(err, &verr) || verr.Message != "Symptoms text is required" {
		t.Fatalf("err = %v, want validation error", err)
	}
	if model.calls != 0 {
		t.Fatalf("model calls = %d, want 0", model.calls)
	}
}

func TestAnalyzeImageRejectsUnknownVariant(t *testing.T) {
	inv := newTestInvoker(&fakeModel{}, quota.NewTracker(quota.Options{Now: fixedClock()}))
	_, err := inv.AnalyzeImage(context.Background(), ImageRequest{ImageData: "AAAA", Variant: "panorama"})
	if !errors.Is(err, domain.ErrUnsupportedVariant) || !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("err = %v, want unsupported variant validation error", err)
	}
}

func TestAnalyzeImageQuotaExceededSkipsModel(t *testing.T) {
	tracker := quota.NewTracker(quota.Options{Now: fixedClock()})
	model := &fakeModel{reply: `{"isHealthInsuranceCard": true}`}
	inv := newTestInvoker(model, tracker)

	for i := 0; i < quota.DefaultSoftLimit; i++ {
		if _, err := inv.AnalyzeImage(context.Background(), ImageRequest{ImageData: "AAAA"}); err != nil {
			t.Fatalf("call %d: unexpected error %v", i+1, err)
		}
	}
	_, err := inv.AnalyzeImage(context.Background(), ImageRequest{ImageData: "AAAA"})
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want quota exceeded", err)
	}
	var exceeded *quota.ExceededError
	if !errors.As(err, &exceeded) || exceeded.Usage.Used != quota.DefaultSoftLimit {
		t.Fatalf("exceeded usage = %+v", exceeded)
	}
	if model.calls != quota.DefaultSoftLimit {
		t.Fatalf("model calls = %d, want %d", model.calls, quota.DefaultSoftLimit)
	}
	if got := tracker.Usage().Used; got != quota.DefaultSoftLimit {
		t.Fatalf("used = %d, want %d", got, quota.DefaultSoftLimit)
	}
}

func TestFailedModelCallsAreNotCounted(t *testing.T) {
	tracker := quota.NewTracker(quota.Options{Now: fixedClock()})
	failing := &fakeModel{err: errors.New("provider unavailable")}
	ok := &fakeModel{reply: `{"matched_categories": []}`}

	for i := 0; i < 3; i++ {
		_, err := newTestInvoker(failing, tracker).AnalyzeSymptoms(context.Background(), SymptomsRequest{Symptoms: "頭が痛い"})
		var merr *domain.ModelError
		if !errors.As(err, &merr) || !errors.Is(err, domain.ErrModelInvocation) {
			t.Fatalf("err = %v, want model error", err)
		}
		if merr.Provider != "fake" {
			t.Fatalf("provider = %q", merr.Provider)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := newTestInvoker(ok, tracker).AnalyzeSymptoms(context.Background(), SymptomsRequest{Symptoms: "頭が痛い"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := tracker.Usage().Used; got != 2 {
		t.Fatalf("used = %d, want 2", got)
	}
}

func TestAnalyzeImageStripsDataURLPrefix(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		mimeType string
		data     string
	}{
		{name: "png_prefix", input: "data:image/png;base64,iVBORw0KGgo=", mimeType: "image/png", data: "iVBORw0KGgo="},
		{name: "jpeg_prefix", input: "data:image/jpeg;base64,/9j/4AAQ", mimeType: "image/jpeg", data: "/9j/4AAQ"},
		{name: "bare_base64", input: "/9j/4AAQ", mimeType: "image/jpeg", data: "/9j/4AAQ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := &fakeModel{reply: "{}"}
			inv := newTestInvoker(model, quota.NewTracker(quota.Options{Now: fixedClock()}))
			if _, err := inv.AnalyzeImage(context.Background(), ImageRequest{ImageData: tc.input}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			img := model.requests[0].Image
			if img == nil || img.MimeType != tc.mimeType || img.Data != tc.data {
				t.Fatalf("image = %+v, want %s %s", img, tc.mimeType, tc.data)
			}
		})
	}
}

func TestAnalyzeImageUsesVariantPrompt(t *testing.T) {
	model := &fakeModel{reply: `{"isAddressDocument": true}`}
	inv := newTestInvoker(model, quota.NewTracker(quota.Options{Now: fixedClock()}))

	res, err := inv.AnalyzeImage(context.Background(), ImageRequest{ImageData: "AAAA", Variant: "address"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.requests[0].Prompt != ImagePrompt(domain.ImageVariantAddress) {
		t.Fatalf("prompt was not the address prompt")
	}
	if res.AddressChecks == nil || !res.IsAddressDocument {
		t.Fatalf("address checks = %+v", res.AddressChecks)
	}

	res, err = inv.AnalyzeImage(context.Background(), ImageRequest{ImageData: "AAAA"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DocumentChecks == nil || res.AddressChecks != nil {
		t.Fatalf("default variant should be detailed, got %+v", res)
	}
}

func TestModelCallIgnoresClientCancellation(t *testing.T) {
	model := &fakeModel{reply: "{}"}
	inv := newTestInvoker(model, quota.NewTracker(quota.Options{Now: fixedClock()}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := inv.AnalyzeSymptoms(ctx, SymptomsRequest{Symptoms: "咳が出る"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.ctxErr != nil {
		t.Fatalf("model saw ctx error %v, want detached context", model.ctxErr)
	}
}

func TestAnalyzeSymptomsPromptCarriesTranscript(t *testing.T) {
	model := &fakeModel{reply: "{}"}
	inv := newTestInvoker(model, quota.NewTracker(quota.Options{Now: fixedClock()}))
	res, err := inv.AnalyzeSymptoms(context.Background(), SymptomsRequest{Symptoms: "昨日から下痢が続いています", Variant: "contact"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.requests[0].Image != nil {
		t.Fatalf("symptom analysis should not send an image")
	}
	if got := model.requests[0].Prompt; got != SymptomsPrompt(domain.SymptomsVariantContact, "昨日から下痢が続いています") {
		t.Fatalf("prompt mismatch: %q", got)
	}
	if res.ContactDetails == nil {
		t.Fatalf("contact variant should carry contact details")
	}
}

func TestAnalyzeImageAcceptsWhitespacePayload(t *testing.T) {
	model := &fakeModel{reply: "{}"}
	inv := newTestInvoker(model, quota.NewTracker(quota.Options{Now: fixedClock()}))
	if _, err := inv.AnalyzeImage(context.Background(), ImageRequest{ImageData: "  "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.calls != 1 {
		t.Fatalf("model calls = %d, want 1", model.calls)
	}
}

// gatedModel parks every Generate call until release is closed.
type gatedModel struct {
	entered chan struct{}
	release chan struct{}
}

func (m *gatedModel) Name() string { return "gated" }

func (m *gatedModel) Generate(ctx context.Context, req domain.ModelRequest) (string, error) {
	m.entered <- struct{}{}
	<-m.release
	return "{}", nil
}

// The quota check and the increment are not atomic: two requests that both
// pass Check at used=44 are both counted, leaving the day at 46.
func TestConcurrentCallsAtBoundaryOvershootSoftLimit(t *testing.T) {
	tracker := quota.NewTracker(quota.Options{Now: fixedClock()})
	for i := 0; i < quota.DefaultSoftLimit-1; i++ {
		tracker.Increment()
	}
	model := &gatedModel{entered: make(chan struct{}, 2), release: make(chan struct{})}
	inv := newTestInvoker(model, tracker)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := inv.AnalyzeImage(context.Background(), ImageRequest{ImageData: "AAAA"})
			errs <- err
		}()
	}
	for i := 0; i < 2; i++ {
		select {
		case <-model.entered:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of 2 calls passed the quota check", i)
		}
	}
	close(model.release)
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := tracker.Usage().Used; got != quota.DefaultSoftLimit+1 {
		t.Fatalf("used = %d, want %d", got, quota.DefaultSoftLimit+1)
	}
	if _, err := inv.AnalyzeImage(context.Background(), ImageRequest{ImageData: "AAAA"}); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want quota exceeded", err)
	}
}

package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chimeralens/api/internal/models"
	"chimeralens/api/internal/prediction"
	"chimeralens/api/internal/repository"
)

type stubConsultations struct {
	consultation models.Consultation
	err          error
	gotSalonID   int64
}

func (s *stubConsultations) GetForSalon(_ context.Context, id, salonID int64) (models.Consultation, error) {
	s.gotSalonID = salonID
	if s.err != nil {
		return models.Consultation{}, s.err
	}
	return s.consultation, nil
}

type stubTemplates struct {
	template models.HairstyleTemplate
	err      error
}

func (s *stubTemplates) GetByID(context.Context, int64) (models.HairstyleTemplate, error) {
	if s.err != nil {
		return models.HairstyleTemplate{}, s.err
	}
	return s.template, nil
}

type stubImages struct {
	created *models.GeneratedImage
	err     error
}

func (s *stubImages) Create(_ context.Context, image models.GeneratedImage) (models.GeneratedImage, error) {
	if s.err != nil {
		return models.GeneratedImage{}, s.err
	}
	image.ID = 77
	s.created = &image
	return image, nil
}

type stubMedia struct {
	uploadedBytes   []byte
	uploadedFolders []string
	fetchedURL      string
	uploadErr       error
	fetchErr        error
}

func (s *stubMedia) UploadBytes(_ context.Context, data []byte, folder string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploadedBytes = data
	s.uploadedFolders = append(s.uploadedFolders, folder)
	return "https://cdn.example.com/upload/" + folder + "/src.png", nil
}

func (s *stubMedia) UploadFromURL(_ context.Context, remoteURL, folder string) (string, error) {
	if s.fetchErr != nil {
		return "", s.fetchErr
	}
	s.fetchedURL = remoteURL
	s.uploadedFolders = append(s.uploadedFolders, folder)
	return "https://cdn.example.com/upload/" + folder + "/result.png", nil
}

func (s *stubMedia) Optimize(u string) string {
	return u
}

type stubRunner struct {
	result   *prediction.Result
	err      error
	gotModel string
	gotInput map[string]any
}

func (s *stubRunner) Run(_ context.Context, model string, input map[string]any) (*prediction.Result, error) {
	s.gotModel = model
	s.gotInput = input
	if s.err != nil {
		return s.result, s.err
	}
	return s.result, nil
}

type serviceFixture struct {
	consultations *stubConsultations
	templates     *stubTemplates
	images        *stubImages
	media         *stubMedia
	runner        *stubRunner
	service       *Service
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		consultations: &stubConsultations{
			consultation: models.Consultation{ID: 10, ClientID: 4, StylistID: 2},
		},
		templates: &stubTemplates{
			template: models.HairstyleTemplate{
				ID:       5,
				ImageURL: "https://cdn.example.com/templates/bob.png",
				ModelKey: "change-haircut",
				Parameters: map[string]any{
					"haircut":    "Bob",
					"hair_color": "Black",
				},
			},
		},
		images: &stubImages{},
		media:  &stubMedia{},
		runner: &stubRunner{
			result: &prediction.Result{
				ID:     "pred-9",
				State:  prediction.StateSucceeded,
				Output: []any{"https://provider.example.com/out.png"},
			},
		},
	}
	f.service = NewService(
		f.consultations, f.templates, f.images, f.media, f.runner,
		NewRegistry(), "salon/uploads", "salon/results", zerolog.Nop(),
	)
	return f
}

func validInput() GenerateInput {
	return GenerateInput{
		ConsultationID: 10,
		SalonID:        1,
		StylistID:      2,
		SourceImage:    []byte("png-bytes"),
		TemplateID:     5,
		Options:        map[string]any{"hair_color": "Red"},
	}
}

func TestGenerateHappyPath(t *testing.T) {
	f := newFixture()

	image, err := f.service.Generate(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, int64(77), image.ID)
	assert.Equal(t, int64(10), image.ConsultationID)
	assert.Equal(t, "https://cdn.example.com/upload/salon/results/result.png", image.ImageURL)

	assert.Equal(t, int64(1), f.consultations.gotSalonID)
	assert.Equal(t, []byte("png-bytes"), f.media.uploadedBytes)
	assert.Equal(t, []string{"salon/uploads", "salon/results"}, f.media.uploadedFolders)
	assert.Equal(t, "https://provider.example.com/out.png", f.media.fetchedURL)

	// Template parameters merged with overrides, overrides winning.
	assert.Equal(t, "Bob", f.runner.gotInput["haircut"])
	assert.Equal(t, "Red", f.runner.gotInput["hair_color"])
	assert.Equal(t, "https://cdn.example.com/upload/salon/uploads/src.png", f.runner.gotInput["input_image"])
	assert.Contains(t, f.runner.gotModel, "flux-kontext-apps/change-haircut:")
}

func TestGenerateRejectsEmptySourceImage(t *testing.T) {
	f := newFixture()
	input := validInput()
	input.SourceImage = nil

	_, err := f.service.Generate(context.Background(), input)
	require.ErrorIs(t, err, ErrMissingSourceImage)
	assert.Nil(t, f.media.uploadedBytes, "nothing reaches the media store")
}

func TestGenerateHidesForeignConsultation(t *testing.T) {
	f := newFixture()
	f.consultations.err = fmt.Errorf("consultation: %w", repository.ErrNotFound)

	_, err := f.service.Generate(context.Background(), validInput())
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, f.media.uploadedBytes)
}

func TestGenerateUnknownModelKeyBeforeUpload(t *testing.T) {
	f := newFixture()
	f.templates.template.ModelKey = "retired-model"

	_, err := f.service.Generate(context.Background(), validInput())
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, f.media.uploadedBytes, "lookup failure precedes any upload")
}

func TestGenerateFirstOutputElement(t *testing.T) {
	f := newFixture()
	f.runner.result.Output = []any{
		"https://provider.example.com/first.png",
		"https://provider.example.com/second.png",
	}

	_, err := f.service.Generate(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "https://provider.example.com/first.png", f.media.fetchedURL)
}

func TestGenerateStringOutput(t *testing.T) {
	f := newFixture()
	f.runner.result.Output = "https://provider.example.com/single.png"

	_, err := f.service.Generate(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "https://provider.example.com/single.png", f.media.fetchedURL)
}

func TestGenerateEmptyOutputFails(t *testing.T) {
	f := newFixture()

	for _, output := range []any{nil, []any{}, []string{}, "", 42, []any{12}} {
		f.runner.result.Output = output
		_, err := f.service.Generate(context.Background(), validInput())
		require.ErrorIs(t, err, ErrGenerationFailed, "output %#v", output)
	}
}

func TestGenerateContentPolicyDetection(t *testing.T) {
	for _, detail := range []string{
		"NSFW content detected",
		"flagged as nsfw",
		"Nsfw: rejected by safety checker",
	} {
		f := newFixture()
		f.runner.result = &prediction.Result{ID: "pred-9", State: prediction.StateFailed}
		f.runner.err = &prediction.RunError{State: prediction.StateFailed, Detail: detail}

		_, err := f.service.Generate(context.Background(), validInput())
		require.ErrorIs(t, err, ErrContentPolicy, "detail %q", detail)
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	f := newFixture()
	f.runner.result = &prediction.Result{ID: "pred-9", State: prediction.StateFailed}
	f.runner.err = &prediction.RunError{State: prediction.StateFailed, Detail: "CUDA out of memory"}

	_, err := f.service.Generate(context.Background(), validInput())
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.NotErrorIs(t, err, ErrContentPolicy)
}

func TestGenerateTimeout(t *testing.T) {
	f := newFixture()
	f.runner.result = &prediction.Result{ID: "pred-9", State: prediction.StateTimedOut}
	f.runner.err = fmt.Errorf("%w after 60s", prediction.ErrTimedOut)

	_, err := f.service.Generate(context.Background(), validInput())
	require.ErrorIs(t, err, ErrGenerationTimedOut)
}

func TestGenerateContextCancelPassesThrough(t *testing.T) {
	f := newFixture()
	f.runner.err = context.Canceled

	_, err := f.service.Generate(context.Background(), validInput())
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestGenerateTransportFailure(t *testing.T) {
	f := newFixture()
	f.runner.err = errors.New("dial tcp: connection refused")

	_, err := f.service.Generate(context.Background(), validInput())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestGenerateUploadFailure(t *testing.T) {
	f := newFixture()
	f.media.uploadErr = errors.New("bucket unreachable")

	_, err := f.service.Generate(context.Background(), validInput())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Empty(t, f.runner.gotModel, "no prediction is started")
}

func TestGeneratePersistenceFailure(t *testing.T) {
	f := newFixture()
	f.images.err = errors.New("connection reset")

	_, err := f.service.Generate(context.Background(), validInput())
	require.ErrorIs(t, err, ErrPersistenceFailed)
}

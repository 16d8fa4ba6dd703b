package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"chimeralens/api/internal/models"
	"chimeralens/api/internal/prediction"
	"chimeralens/api/internal/repository"
)

// ConsultationStore resolves a consultation scoped to its owning salon,
// excluding soft-deleted rows. A cross-tenant id must be indistinguishable
// from a missing one.
type ConsultationStore interface {
	GetForSalon(ctx context.Context, id, salonID int64) (models.Consultation, error)
}

type TemplateStore interface {
	GetByID(ctx context.Context, id int64) (models.HairstyleTemplate, error)
}

type GeneratedImageStore interface {
	Create(ctx context.Context, image models.GeneratedImage) (models.GeneratedImage, error)
}

// MediaStore is the durable object-store contract the pipeline consumes.
type MediaStore interface {
	UploadBytes(ctx context.Context, data []byte, folder string) (string, error)
	UploadFromURL(ctx context.Context, remoteURL, folder string) (string, error)
	Optimize(u string) string
}

// Runner executes one prediction job to a terminal state.
type Runner interface {
	Run(ctx context.Context, model string, input map[string]any) (*prediction.Result, error)
}

// Service composes registry lookup, media uploads, prediction execution and
// persistence into one generation pipeline. Each call is an independent unit
// of work; the only shared state is the read-only registry.
type Service struct {
	consultations ConsultationStore
	templates     TemplateStore
	images        GeneratedImageStore
	media         MediaStore
	runner        Runner
	registry      *Registry
	uploadsFolder string
	resultsFolder string
	log           zerolog.Logger
}

func NewService(
	consultations ConsultationStore,
	templates TemplateStore,
	images GeneratedImageStore,
	media MediaStore,
	runner Runner,
	registry *Registry,
	uploadsFolder string,
	resultsFolder string,
	log zerolog.Logger,
) *Service {
	return &Service{
		consultations: consultations,
		templates:     templates,
		images:        images,
		media:         media,
		runner:        runner,
		registry:      registry,
		uploadsFolder: uploadsFolder,
		resultsFolder: resultsFolder,
		log:           log,
	}
}

type GenerateInput struct {
	ConsultationID int64
	SalonID        int64
	StylistID      int64
	SourceImage    []byte
	TemplateID     int64
	Options        map[string]any
}

// Generate runs the full pipeline. Any step failure aborts the rest of the
// call; nothing is retried and completed uploads are not rolled back. There
// is no transaction over the external media store, so an orphaned stored
// image is an accepted cost.
func (s *Service) Generate(ctx context.Context, input GenerateInput) (models.GeneratedImage, error) {
	if len(input.SourceImage) == 0 {
		return models.GeneratedImage{}, ErrMissingSourceImage
	}

	if _, err := s.consultations.GetForSalon(ctx, input.ConsultationID, input.SalonID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.GeneratedImage{}, fmt.Errorf("%w: consultation %d", ErrNotFound, input.ConsultationID)
		}
		return models.GeneratedImage{}, fmt.Errorf("load consultation: %w", err)
	}

	template, err := s.templates.GetByID(ctx, input.TemplateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.GeneratedImage{}, fmt.Errorf("%w: template %d", ErrNotFound, input.TemplateID)
		}
		return models.GeneratedImage{}, fmt.Errorf("load template: %w", err)
	}

	adapter, err := s.registry.Resolve(template.ModelKey)
	if err != nil {
		return models.GeneratedImage{}, err
	}

	sourceURL, err := s.media.UploadBytes(ctx, input.SourceImage, s.uploadsFolder)
	if err != nil {
		return models.GeneratedImage{}, fmt.Errorf("%w: store source image: %s", ErrUpstreamUnavailable, err)
	}
	sourceURL = s.media.Optimize(sourceURL)

	opts := MergeOptions(template.Parameters, input.Options)
	modelInput := adapter.ShapeInput(sourceURL, template, opts)

	s.log.Info().
		Int64("consultation_id", input.ConsultationID).
		Int64("template_id", template.ID).
		Str("model_key", template.ModelKey).
		Msg("starting generation")

	result, err := s.runner.Run(ctx, adapter.Model(), modelInput)
	if err != nil {
		return models.GeneratedImage{}, s.classifyRunError(input.ConsultationID, err)
	}

	outputURL, ok := firstOutput(result.Output)
	if !ok {
		return models.GeneratedImage{}, fmt.Errorf("%w: model did not return a valid image URL", ErrGenerationFailed)
	}

	finalURL, err := s.media.UploadFromURL(ctx, outputURL, s.resultsFolder)
	if err != nil {
		return models.GeneratedImage{}, fmt.Errorf("%w: store result image: %s", ErrUpstreamUnavailable, err)
	}
	finalURL = s.media.Optimize(finalURL)

	image, err := s.images.Create(ctx, models.GeneratedImage{
		ConsultationID: input.ConsultationID,
		ImageURL:       finalURL,
	})
	if err != nil {
		// External side effects already happened and stay in place.
		return models.GeneratedImage{}, fmt.Errorf("%w: %s", ErrPersistenceFailed, err)
	}

	s.log.Info().
		Int64("consultation_id", input.ConsultationID).
		Int64("generated_image_id", image.ID).
		Str("prediction_id", result.ID).
		Msg("generation complete")

	return image, nil
}

func (s *Service) classifyRunError(consultationID int64, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, prediction.ErrTimedOut) {
		return fmt.Errorf("%w: %s", ErrGenerationTimedOut, err)
	}

	var runErr *prediction.RunError
	if errors.As(err, &runErr) {
		if strings.Contains(strings.ToLower(runErr.Detail), "nsfw") {
			s.log.Warn().
				Int64("consultation_id", consultationID).
				Msg("generation blocked by content policy")
			return ErrContentPolicy
		}
		return fmt.Errorf("%w: %s", ErrGenerationFailed, runErr)
	}

	return fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
}

// firstOutput extracts the usable image URL from a provider output, which
// is either a single string or an ordered sequence of strings. Sequences
// yield their first element.
func firstOutput(output any) (string, bool) {
	switch v := output.(type) {
	case string:
		return v, v != ""
	case []string:
		if len(v) == 0 {
			return "", false
		}
		return v[0], v[0] != ""
	case []any:
		if len(v) == 0 {
			return "", false
		}
		first, ok := v[0].(string)
		return first, ok && first != ""
	default:
		return "", false
	}
}

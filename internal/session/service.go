package session

import (
	"context"

	"github.com/raine/rapidlisting/internal/listing"
	"github.com/raine/rapidlisting/internal/llm"
	"github.com/rs/zerolog/log"
)

// Service runs extraction and generation calls against a session. Provider
// errors are logged and surfaced as ErrExtractionFailed or
// ErrGenerationFailed so no provider detail reaches the user.
type Service struct {
	extractor llm.Extractor
	generator llm.Generator
}

func NewService(extractor llm.Extractor, generator llm.Generator) *Service {
	return &Service{extractor: extractor, generator: generator}
}

// Extract reads text from the most recently added image and stores it as
// the extracted text of the record that was active when the call started.
func (svc *Service) Extract(ctx context.Context, s *Session) (string, error) {
	img, ticket, err := s.BeginExtraction()
	if err != nil {
		return "", err
	}

	text, err := svc.extractor.ExtractText(ctx, img.Data, img.MIMEType)
	if err != nil {
		s.FinishExtraction(ticket, "", err)
		log.Error().Err(err).Str("session", s.ID()).Str("image", img.ID).Msg("text extraction failed")
		return "", ErrExtractionFailed
	}

	if !s.FinishExtraction(ticket, text, nil) {
		return "", ErrResultDiscarded
	}
	log.Info().Str("session", s.ID()).Str("image", img.ID).Int("textLength", len(text)).Msg("text extracted")
	return text, nil
}

// Generate builds the prompt from the active record and stores the result.
// A result arriving after a mode switch is dropped with ErrResultDiscarded.
func (svc *Service) Generate(ctx context.Context, s *Session) (*listing.Result, error) {
	item, ticket, err := s.BeginGeneration()
	if err != nil {
		return nil, err
	}

	prompt := listing.BuildPrompt(item)
	result, err := svc.generator.GenerateListings(ctx, prompt)
	if err != nil {
		s.FinishGeneration(ticket, nil, err)
		log.Error().Err(err).Str("session", s.ID()).Str("mode", string(item.Mode())).Msg("listing generation failed")
		return nil, ErrGenerationFailed
	}

	if !s.FinishGeneration(ticket, result, nil) {
		log.Info().Str("session", s.ID()).Msg("dropped listings generated before mode switch")
		return nil, ErrResultDiscarded
	}
	log.Info().Str("session", s.ID()).Str("mode", string(item.Mode())).Msg("listings generated")
	return result, nil
}

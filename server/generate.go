package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"blog_backend/generator"
)

type generateRequest struct {
	Topic    string `json:"topic"`
	Keywords string `json:"keywords"`
	Tone     string `json:"tone"`
}

var generationHints = map[error]string{
	generator.ErrConfiguration:    "Set the provider API key in the server environment and restart.",
	generator.ErrAuth:             "Verify the API key used by the running server process.",
	generator.ErrExhausted:        "Try again, or narrow the topic so the article fits the length rules.",
	generator.ErrGenerationFailed: "The AI provider could not be reached. Try again shortly.",
}

// GeneratePost runs one generation and returns the candidate without saving it.
func (s *Server) GeneratePost(c echo.Context) error {
	var body generateRequest
	dec := json.NewDecoder(c.Request().Body)
	if err := dec.Decode(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid JSON body.",
			Hint:  `Send a JSON object such as {"topic": "IELTS Writing Task 2", "tone": "expert"}.`,
		})
	}

	req, err := generator.Request{
		Topic:    body.Topic,
		Keywords: body.Keywords,
		Tone:     generator.Tone(body.Tone),
	}.Normalize()
	switch {
	case errors.Is(err, generator.ErrTopicRequired):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "topic is required", Hint: "Provide a non-empty topic string."})
	case errors.Is(err, generator.ErrInvalidTone):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: generator.ErrInvalidTone.Error(), Hint: "Omit tone to use expert."})
	case err != nil:
		return s.generationError(c, err)
	}

	post, err := s.gen.Generate(c.Request().Context(), req)
	if err != nil {
		return s.generationError(c, err)
	}
	s.log.Info().Str("request_id", requestID(c)).Str("topic", req.Topic).Int("tags", len(post.Tags)).Msg("post generated")
	return c.JSON(http.StatusOK, post)
}

func (s *Server) generationError(c echo.Context, err error) error {
	var gerr *generator.Error
	if errors.As(err, &gerr) {
		s.log.Warn().Err(err).Str("request_id", requestID(c)).Str("last_reason", gerr.LastReason).Msg("generation failed")
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: gerr.Message, Hint: generationHints[gerr.Kind]})
	}
	s.log.Error().Err(err).Str("request_id", requestID(c)).Msg("generation internal error")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error."})
}

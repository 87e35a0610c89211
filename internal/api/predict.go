package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/tbrisk/internal/classifier"
	"github.com/Skufu/tbrisk/internal/hospital"
	"github.com/Skufu/tbrisk/internal/prediction"
	"github.com/Skufu/tbrisk/internal/symptom"
)

const (
	msgUnsupportedMediaType = "Content-Type must be application/json"
	msgInvalidPayload       = "Invalid or empty JSON"
	msgBodyTooLarge         = "Request body too large"
	msgServerError          = "Server error. Please try again later."
)

type predictResponse struct {
	RiskLevel         classifier.RiskLevel `json:"risk_level"`
	ConfidencePercent float64              `json:"confidence_percent"`
	Hospitals         []hospital.Hospital  `json:"hospitals"`
	Disclaimer        string               `json:"disclaimer"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Disclaimer string `json:"disclaimer,omitempty"`
}

var errBodyTooLarge = errors.New("request body too large")

func (h *handler) predict(c *gin.Context) {
	log := zerolog.Ctx(c.Request.Context())
	log.Info().Msg("predict endpoint hit")

	if !isJSON(c.GetHeader("Content-Type")) {
		clientError(c, http.StatusBadRequest, msgUnsupportedMediaType)
		return
	}

	payload, err := decodeBody(c.Request.Body)
	if errors.Is(err, errBodyTooLarge) {
		clientError(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return
	}
	if err != nil {
		clientError(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	result, err := h.predictor.Predict(c.Request.Context(), payload)
	if err != nil {
		if status, msg, ok := clientMessage(err); ok {
			clientError(c, status, msg)
			return
		}
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, predictResponse{
		RiskLevel:         result.RiskLevel,
		ConfidencePercent: result.ConfidencePercent,
		Hospitals:         result.Hospitals,
		Disclaimer:        prediction.Disclaimer,
	})
}

// isJSON accepts application/json and application/*+json, parameters
// ignored.
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || (strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}

// decodeBody reads a single JSON value. Numbers stay json.Number so the
// validator can reject 1.0 and friends.
func decodeBody(body io.Reader) (any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after json value")
	}
	return payload, nil
}

// clientMessage maps validation failures to their response message.
func clientMessage(err error) (int, string, bool) {
	var missing *symptom.MissingFeatureError
	var invalid *symptom.InvalidFeatureValueError
	switch {
	case errors.Is(err, symptom.ErrInvalidPayload):
		return http.StatusBadRequest, msgInvalidPayload, true
	case errors.As(err, &missing):
		return http.StatusBadRequest, fmt.Sprintf("Missing feature: %s", missing.Key), true
	case errors.As(err, &invalid):
		return http.StatusBadRequest, fmt.Sprintf("%s must be 0 or 1", invalid.Key), true
	}
	return 0, "", false
}

func clientError(c *gin.Context, status int, msg string) {
	zerolog.Ctx(c.Request.Context()).Debug().
		Int("status", status).
		Str("reason", msg).
		Msg("rejected request")
	c.JSON(status, errorResponse{Error: msg})
}

// serverError logs the cause and answers with a body that carries no detail.
func serverError(c *gin.Context, err error) {
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("unhandled server error")
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
		Error:      msgServerError,
		Disclaimer: prediction.Disclaimer,
	})
}

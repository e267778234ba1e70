package httpapi

import (
	"net/http"

	"github.com/borough-labs/concierge/internal/pipeline"
	"github.com/gin-gonic/gin"
)

// VoiceRequest is the inbound body: base64 audio plus an optional media
// type label which is passed through to transcription unchanged.
type VoiceRequest struct {
	Audio    string `json:"audio"`
	MIMEType string `json:"mimeType"`
}

// VoiceResponse is the success body. All three fields are always present;
// a failed interaction returns an error body instead, never a subset.
type VoiceResponse struct {
	Transcript    string `json:"transcript"`
	AIResponse    string `json:"aiResponse"`
	AudioResponse string `json:"audioResponse"`
}

type VoiceHandler struct {
	pipeline *pipeline.Pipeline
}

func NewVoiceHandler(p *pipeline.Pipeline) *VoiceHandler {
	return &VoiceHandler{pipeline: p}
}

// Handle runs one interaction. Every pipeline error surfaces here exactly
// once and is mapped to its status code; the pipeline has already logged it.
func (h *VoiceHandler) Handle(c *gin.Context) {
	var req VoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.pipeline.Run(c.Request.Context(), c.GetString("request_id"), pipeline.Request{
		Audio:    req.Audio,
		MIMEType: req.MIMEType,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if pipeline.IsBadRequest(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, VoiceResponse{
		Transcript:    result.Transcript,
		AIResponse:    result.Reply,
		AudioResponse: result.AudioB64,
	})
}

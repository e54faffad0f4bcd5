package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valpere/peredit/internal"
	"github.com/valpere/peredit/internal/placeholder"
	"github.com/valpere/peredit/internal/rewriter"
)

type rewriteBody struct {
	Paper *string `json:"paper"`
}

type humanizeBody struct {
	Text     *string  `json:"text"`
	Texts    []string `json:"texts"`
	Strength string   `json:"strength"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// rewrite accepts {"paper": "..."} or the paper as a raw body. A body that
// is not a JSON object is taken as raw text.
func (s *Server) rewrite(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paper, err := paperText(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": noTextMessage})
		return
	}

	doHumanize, _ := strconv.ParseBool(c.Query("humanize"))
	strength := c.DefaultQuery("strength", s.strength)

	req := internal.RewriteRequest{
		ID:        uuid.NewString(),
		Paper:     paper,
		Strength:  strength,
		Timestamp: time.Now(),
	}
	log := s.logger.With(zap.String("request_id", req.ID))

	res, err := s.rewriter.Rewrite(c.Request.Context(), req)
	if err != nil {
		log.Error("rewrite failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(upstreamStatus(err), gin.H{"error": err.Error()})
		return
	}

	out := res.Text
	humanized := ""
	if doHumanize {
		humanized = placeholder.Around(res.Text, func(t string) string {
			return s.humanizer.Humanize(t, strength)
		})
		out = humanized
	}

	if s.store != nil {
		if err := s.store.SaveOutput(context.WithoutCancel(c.Request.Context()), req.ID, res.Text, humanized, strength, res.Warnings); err != nil {
			log.Warn("failed to save output", zap.Error(err))
		}
	}

	resp := gin.H{"rewritten_paper": out}
	if len(res.Warnings) > 0 {
		resp["warnings"] = res.Warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) humanize(c *gin.Context) {
	var body humanizeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strength := body.Strength
	if strength == "" {
		strength = s.strength
	}

	switch {
	case body.Texts != nil:
		c.JSON(http.StatusOK, gin.H{"humanized": s.humanizeBatch(body.Texts, strength)})
	case body.Text != nil && strings.TrimSpace(*body.Text) != "":
		out := placeholder.Around(*body.Text, func(t string) string {
			return s.humanizer.Humanize(t, strength)
		})
		c.JSON(http.StatusOK, gin.H{"humanized": out})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": noTextMessage})
	}
}

func (s *Server) humanizeBatch(texts []string, strength string) []string {
	protected := make([]string, len(texts))
	originals := make([][]string, len(texts))
	for i, text := range texts {
		protected[i], originals[i] = placeholder.Protect(text)
	}
	out := s.humanizer.HumanizeBatch(protected, strength)
	for i := range out {
		out[i] = placeholder.Restore(out[i], originals[i])
	}
	return out
}

func paperText(raw []byte) (string, error) {
	paper := string(raw)
	var body rewriteBody
	if err := json.Unmarshal(raw, &body); err == nil {
		paper = ""
		if body.Paper != nil {
			paper = *body.Paper
		}
	}
	if strings.TrimSpace(paper) == "" {
		return "", ErrNoText
	}
	return paper, nil
}

func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, rewriter.ErrNoAPIKey):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

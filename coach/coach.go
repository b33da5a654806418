// Package coach wraps the generative AI collaborators: conversational
// coaching, indoor route suggestions and food photo analysis. Every call
// degrades to a fixed fallback instead of returning an error.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"mallathon/logging"
)

const DefaultModel = "gemini-3-flash-preview"

// Generator is the part of the Gemini API the coach depends on.
type Generator interface {
	Generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)
}

// GeminiGenerator calls Models.GenerateContent on a genai client.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return resp.Text(), nil
}

type Options struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// Coach is safe for concurrent use.
type Coach struct {
	gen     Generator
	timeout time.Duration
	log     *zap.Logger
}

// New returns a coach backed by gen. A nil gen gives an offline coach that
// always answers with fallbacks.
func New(gen Generator, opts Options) *Coach {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Coach{
		gen:     gen,
		timeout: opts.Timeout,
		log:     logging.OrNop(opts.Logger).Named("coach"),
	}
}

func (c *Coach) Online() bool {
	return c.gen != nil
}

func (c *Coach) generate(ctx context.Context, op string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if c.gen == nil {
		return "", fmt.Errorf("%s: coach is offline", op)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.gen.Generate(ctx, contents, cfg)
	c.log.Debug("generate", zap.String("op", op), zap.Duration("took", time.Since(start)), zap.Error(err))
	return text, err
}

func (c *Coach) report(op string, err error) {
	c.log.Warn("collaborator failed, serving fallback", zap.String("op", op), zap.Error(err))
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(s *sentry.Scope) {
		s.SetTag("collaborator", op)
	})
	hub.CaptureException(err)
}

// Coaching answers message in the context of history.
func (c *Coach) Coaching(ctx context.Context, message string, history []Turn) string {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if t.Role == "model" || t.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	text, err := c.generate(ctx, "coaching", contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
	})
	if err != nil {
		c.report("coaching", err)
		return FallbackOffline
	}
	if strings.TrimSpace(text) == "" {
		return FallbackEmptyReply
	}
	return text
}

// SuggestRoutes never returns an empty list.
func (c *Coach) SuggestRoutes(ctx context.Context, location, timeOfDay string) []Route {
	text, err := c.generate(ctx, "routes",
		[]*genai.Content{genai.NewContentFromText(routesPrompt(location, timeOfDay), genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   routesSchema(),
		})
	if err != nil {
		c.report("routes", err)
		return FallbackRoutes()
	}

	var raw []Route
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		c.report("routes", fmt.Errorf("parse routes: %w", err))
		return FallbackRoutes()
	}
	routes := make([]Route, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		routes = append(routes, normalizeRoute(r))
	}
	if len(routes) == 0 {
		return FallbackRoutes()
	}
	return routes
}

// AnalyzeFood returns nil when the image could not be analyzed.
func (c *Coach) AnalyzeFood(ctx context.Context, image []byte) *FoodScan {
	if len(image) == 0 {
		return nil
	}
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mime),
			genai.NewPartFromText(foodPrompt),
		}, genai.RoleUser),
	}
	text, err := c.generate(ctx, "food", contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   foodSchema(),
	})
	if err != nil {
		c.report("food", err)
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var reply foodReply
	if err := json.Unmarshal([]byte(stripFences(text)), &reply); err != nil {
		c.report("food", fmt.Errorf("parse food scan: %w", err))
		return nil
	}
	scan := reply.FoodScan
	// zero reads as missing; any other score survives rounding
	if v := reply.AgingScore; v != nil && *v != 0 {
		scan.AgingScore = max(1, int(math.Round(*v)))
	}
	normalizeScan(&scan)
	return &scan
}

// foodReply accepts fractional aging scores from the model.
type foodReply struct {
	FoodScan
	AgingScore *float64 `json:"agingScore"`
}

// stripFences removes markdown code fences models sometimes wrap JSON in.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func normalizeRoute(r Route) Route {
	switch strings.ToLower(strings.TrimSpace(string(r.CrowdLevel))) {
	case "low":
		r.CrowdLevel = CrowdLow
	case "high":
		r.CrowdLevel = CrowdHigh
	default:
		r.CrowdLevel = CrowdModerate
	}
	if r.Features == nil {
		r.Features = []string{}
	}
	return r
}

func normalizeScan(s *FoodScan) {
	if strings.TrimSpace(s.FoodName) == "" {
		s.FoodName = "Unknown food"
	}
	switch {
	case s.AgingScore == 0:
		s.AgingScore = 5
	case s.AgingScore < 1:
		s.AgingScore = 1
	case s.AgingScore > 10:
		s.AgingScore = 10
	}
	switch strings.ToLower(strings.TrimSpace(string(s.GlycemicLoad))) {
	case "low":
		s.GlycemicLoad = GlycemicLow
	case "high":
		s.GlycemicLoad = GlycemicHigh
	default:
		s.GlycemicLoad = GlycemicMedium
	}
	if s.Preservatives == nil {
		s.Preservatives = []string{}
	}
}

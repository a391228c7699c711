// Package detector analyzes suspicious messages and screenshots for scam
// tactics and tracks the user's detection badges.
package detector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cyberguard/internal/kvstore"
	"cyberguard/internal/llm"
	"cyberguard/internal/prompt"

	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyInput     = errors.New("detector: text or image is required")
	ErrInvalidImage   = errors.New("detector: unsupported image")
	ErrAnalysisFailed = errors.New("detector: analysis failed")
)

type RiskLevel string

const (
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
	RiskUnknown RiskLevel = "Unknown"
)

func parseRiskLevel(s string) RiskLevel {
	switch RiskLevel(strings.TrimSpace(s)) {
	case RiskLow:
		return RiskLow
	case RiskMedium:
		return RiskMedium
	case RiskHigh:
		return RiskHigh
	default:
		return RiskUnknown
	}
}

type AnalysisPoint struct {
	Tactic      string `json:"tactic" jsonschema:"description=Name of the manipulation tactic"`
	Explanation string `json:"explanation"`
	Quote       string `json:"quote" jsonschema:"description=Exact text from the input that shows the tactic"`
}

// Report is the risk assessment shown to the user.
type Report struct {
	RiskScore      int             `json:"riskScore" jsonschema:"minimum=0,maximum=100"`
	RiskLevel      RiskLevel       `json:"riskLevel" jsonschema:"enum=Low,enum=Medium,enum=High,enum=Unknown"`
	Summary        string          `json:"summary"`
	AnalysisPoints []AnalysisPoint `json:"analysisPoints"`
}

// Image is an uploaded screenshot.
type Image struct {
	MIMEType string
	Data     []byte
}

// Result pairs a report with the badge it unlocked, if any.
type Result struct {
	Report         Report `json:"report"`
	DetectionCount int    `json:"detectionCount"`
	Badge          *Badge `json:"badge,omitempty"`
}

// Recorder receives detector counters. metrics.Metrics implements it.
type Recorder interface {
	DetectorAnalysis(riskLevel string)
	BadgeAwarded(name string)
}

type nopRecorder struct{}

func (nopRecorder) DetectorAnalysis(string) {}
func (nopRecorder) BadgeAwarded(string)     {}

type Detector struct {
	client  llm.LLMClient
	store   kvstore.Store
	metrics Recorder
	log     *logrus.Entry
}

func New(client llm.LLMClient, store kvstore.Store, metrics Recorder, log *logrus.Entry) *Detector {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Detector{client: client, store: store, metrics: metrics, log: log}
}

var analyzePrompt = prompt.Spec{
	Purpose:    "Decide whether a message or screenshot is a scam and explain the tactics it uses.",
	Background: "You are a fraud analyst helping a non-expert. The input is a message (email, SMS, chat or web page text) and possibly a screenshot of it.",
	Schema:     Report{},
	Rules: []string{
		"riskScore is an integer from 0 (certainly safe) to 100 (certainly a scam).",
		"riskLevel is Low for scores below 40, Medium up to 70 and High above.",
		"Every analysisPoints entry quotes the input verbatim in quote.",
		"Use an empty analysisPoints list when nothing suspicious is found.",
	},
	OutputFormat: "A single JSON object. No prose, no markdown.",
	Language:     "English",
}

type analyzeInput struct {
	Text     string `json:"text"`
	HasImage bool   `json:"hasImage"`
}

// Analyze asks the model for a risk report. Each successful analysis counts
// towards the detection badges.
func (d *Detector) Analyze(ctx context.Context, text string, img *Image) (Result, error) {
	text = strings.TrimSpace(text)
	if img != nil && len(img.Data) == 0 {
		img = nil
	}
	if text == "" && img == nil {
		return Result{}, ErrEmptyInput
	}
	var media []llm.Media
	if img != nil {
		if !strings.HasPrefix(img.MIMEType, "image/") {
			return Result{}, fmt.Errorf("%w: %q", ErrInvalidImage, img.MIMEType)
		}
		media = append(media, llm.Media{MIMEType: img.MIMEType, Data: img.Data})
	}

	in := analyzeInput{Text: text, HasImage: img != nil}
	p, err := prompt.Build(analyzePrompt, in)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	raw, err := d.client.GenerateJSON(llm.WithPhase(ctx, llm.PhaseAnalyze), p, in, media...)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	var rep Report
	if err := prompt.Decode(raw, &rep); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	rep = normalize(rep)
	d.metrics.DetectorAnalysis(string(rep.RiskLevel))

	count, badge, err := d.recordDetection(ctx)
	if err != nil {
		// Progress tracking never fails an analysis.
		d.log.WithError(err).Warn("recording detection")
	}
	if badge != nil {
		d.metrics.BadgeAwarded(badge.Title)
		d.log.WithField("badge", badge.Title).Info("badge earned")
	}
	return Result{Report: rep, DetectionCount: count, Badge: badge}, nil
}

func normalize(r Report) Report {
	if r.RiskScore < 0 {
		r.RiskScore = 0
	}
	if r.RiskScore > 100 {
		r.RiskScore = 100
	}
	r.RiskLevel = parseRiskLevel(string(r.RiskLevel))
	r.Summary = strings.TrimSpace(r.Summary)
	if r.AnalysisPoints == nil {
		r.AnalysisPoints = []AnalysisPoint{}
	}
	return r
}

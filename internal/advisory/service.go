// Package advisory implements the stateless AI flows: customer support replies,
// predictive maintenance, driver behaviour scoring and dataset narration.
//
// Each flow validates its input, renders a fixed prompt, calls the text generator
// and validates the decoded JSON before returning it. Flows never touch storage.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/llm"
	"github.com/spec-kit/garage-service/internal/observability"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
	"github.com/spec-kit/garage-service/pkg/util/validation"
)

// Flow names are used in logs and metrics.
const (
	FlowSupport        = "customer_support"
	FlowMaintenance    = "predictive_maintenance"
	FlowDriverBehavior = "driver_behavior"
	FlowDataAnalysis   = "data_analysis"
)

const (
	msgAnalysisFailed = "analysis failed"
	msgResponseFailed = "response failed"
)

// Service runs the advisory flows against a text generator.
type Service struct {
	gen      llm.Generator
	validate *validation.Validator
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewService constructs the flows. timeout bounds each generator call; zero disables it.
func NewService(gen llm.Generator, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gen:      gen,
		validate: validation.New(),
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// CustomerSupport drafts a reply to a customer message.
func (s *Service) CustomerSupport(ctx context.Context, in SupportInput) (*SupportOutput, error) {
	return run[SupportInput, SupportOutput](ctx, s, FlowSupport, supportPrompt, in, msgResponseFailed)
}

// PredictiveMaintenance suggests upcoming maintenance with risk and cost estimates.
func (s *Service) PredictiveMaintenance(ctx context.Context, in MaintenanceInput) (*MaintenanceOutput, error) {
	return run[MaintenanceInput, MaintenanceOutput](ctx, s, FlowMaintenance, maintenancePrompt, in, msgAnalysisFailed)
}

// DriverBehavior scores a driver's safety and fuel efficiency.
func (s *Service) DriverBehavior(ctx context.Context, in DriverBehaviorInput) (*DriverBehaviorOutput, error) {
	return run[DriverBehaviorInput, DriverBehaviorOutput](ctx, s, FlowDriverBehavior, driverBehaviorPrompt, in, msgAnalysisFailed)
}

// DataAnalysis narrates trends and anomalies in a dataset.
func (s *Service) DataAnalysis(ctx context.Context, in DataAnalysisInput) (*DataAnalysisOutput, error) {
	return run[DataAnalysisInput, DataAnalysisOutput](ctx, s, FlowDataAnalysis, dataAnalysisPrompt, in, msgAnalysisFailed)
}

// ValidateSupport checks a support request before any customer history is loaded for it.
func (s *Service) ValidateSupport(in SupportInput) error {
	return s.check(FlowSupport, in)
}

func (s *Service) check(flow string, in any) error {
	if err := s.validate.Struct("invalid "+strings.ReplaceAll(flow, "_", " ")+" input", in); err != nil {
		s.metrics.RecordAdvisory(flow, "invalid_input")
		return err
	}
	return nil
}

func run[In, Out any](ctx context.Context, s *Service, flow string, tmpl *template.Template, in In, failMsg string) (*Out, error) {
	if err := s.check(flow, in); err != nil {
		return nil, err
	}

	var prompt bytes.Buffer
	if err := tmpl.Execute(&prompt, in); err != nil {
		s.metrics.RecordAdvisory(flow, "failed")
		return nil, apperrors.NewInternalError(fmt.Errorf("render %s prompt: %w", flow, err))
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.gen.Generate(callCtx, llm.Prompt{System: systemPrompt, User: prompt.String(), JSON: true})
	if err != nil {
		s.metrics.RecordAdvisory(flow, "failed")
		s.logger.Warn("advisory generation failed", zap.String("flow", flow), zap.Error(err))
		return nil, apperrors.NewExternalServiceError(failMsg, err)
	}

	var out Out
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		s.metrics.RecordAdvisory(flow, "failed")
		s.logger.Warn("advisory output is not valid JSON", zap.String("flow", flow), zap.Error(err))
		return nil, apperrors.NewExternalServiceError(failMsg, err)
	}
	fields, err := s.validate.Fields(out)
	if err != nil || len(fields) > 0 {
		s.metrics.RecordAdvisory(flow, "failed")
		s.logger.Warn("advisory output failed schema validation",
			zap.String("flow", flow), zap.Any("fields", fields), zap.Error(err))
		if err == nil {
			err = fmt.Errorf("output schema violated: %v", fields)
		}
		return nil, apperrors.NewExternalServiceError(failMsg, err)
	}

	s.metrics.RecordAdvisory(flow, "ok")
	return &out, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence some models add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

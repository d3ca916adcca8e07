package service

import (
	"context"
	"sync"

	"mathdiag_backend/internal/diagnostic"
	"mathdiag_backend/internal/model"
	"mathdiag_backend/internal/util"
	"mathdiag_backend/pkg/logger"
	"mathdiag_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// FormStore 表单与决策图的读取面。由 repository.FormRepository 实现。
type FormStore interface {
	FindByFormID(formID string) (*model.DiagnosticForm, error)
	Graph(ctx context.Context, formID string) (*diagnostic.Graph, error)
	IncrementAssigned(formID string) error
}

// SessionStore 会话持久化。完成落库必须原子提交会话与结果。
type SessionStore interface {
	Create(session *model.DiagnosticSession) error
	FindBySessionID(sessionID string) (*model.DiagnosticSession, error)
	Update(session *model.DiagnosticSession) error
	CompleteWithResult(session *model.DiagnosticSession, result *model.DiagnosticResult) error
}

type ResultStore interface {
	FindBySessionID(sessionID string) (*model.DiagnosticResult, error)
	ListByLearner(learnerID string, page, pageSize int) ([]model.DiagnosticResult, int64, error)
	MarkReviewed(sessionID, notes string) error
}

// UsageRecorder bumps catalog usage counters when a misconception is
// diagnosed as primary. Failures are logged, never surfaced.
type UsageRecorder interface {
	IncrementUsage(tag string) error
}

// DiagnosticService 驱动诊断会话的完整生命周期。引擎本身不做并发控制，
// 同一会话的提交在这里用按键互斥锁串行化。
type DiagnosticService struct {
	Forms    FormStore
	Sessions SessionStore
	Results  ResultStore
	Catalog  diagnostic.CatalogLookup

	// Usage is optional; nil disables usage accounting.
	Usage UsageRecorder

	mu         sync.RWMutex
	thresholds diagnostic.Thresholds

	sessionLocks sync.Map // sessionID -> *sync.Mutex
}

func NewDiagnosticService(forms FormStore, sessions SessionStore, results ResultStore, catalog diagnostic.CatalogLookup, th diagnostic.Thresholds) *DiagnosticService {
	return &DiagnosticService{
		Forms:      forms,
		Sessions:   sessions,
		Results:    results,
		Catalog:    catalog,
		thresholds: th,
	}
}

// UpdateThresholds swaps the tuning constants at runtime (config hot
// reload). In-flight submissions keep the thresholds they started with.
func (s *DiagnosticService) UpdateThresholds(th diagnostic.Thresholds) {
	s.mu.Lock()
	s.thresholds = th
	s.mu.Unlock()
	logger.Log.Info("diagnostic thresholds updated",
		zap.Float64("confirm", th.Confirm),
		zap.Float64("earlyExit", th.EarlyExit))
}

func (s *DiagnosticService) currentThresholds() diagnostic.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

func (s *DiagnosticService) lockSession(sessionID string) *sync.Mutex {
	lock, _ := s.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// OptionView 呈现给学习者的选项：只有 id 和文本，不携带答案信息。
type OptionView struct {
	OptionID string `json:"optionId"`
	Value    string `json:"value"`
}

// NodeView is a question as the learner sees it. Correct-answer reasoning
// and misconception tags never leave the server.
type NodeView struct {
	NodeID  string       `json:"nodeId"`
	Kind    string       `json:"kind"`
	Stem    string       `json:"stem"`
	Options []OptionView `json:"options"`
}

func toNodeView(n *diagnostic.Node) *NodeView {
	options := make([]OptionView, 0, len(n.Distractors)+1)
	options = append(options, OptionView{OptionID: n.CorrectAnswer.OptionID, Value: n.CorrectAnswer.Value})
	for _, d := range n.Distractors {
		options = append(options, OptionView{OptionID: d.OptionID, Value: d.Value})
	}
	return &NodeView{
		NodeID:  n.NodeID,
		Kind:    string(n.Kind),
		Stem:    n.Stem,
		Options: options,
	}
}

// SessionView is session state in API shape.
type SessionView struct {
	SessionID               string             `json:"sessionId"`
	LearnerID               string             `json:"learnerId"`
	FormID                  string             `json:"formId"`
	Status                  string             `json:"status"`
	CurrentNode             *NodeView          `json:"currentNode,omitempty"`
	VisitedNodes            []string           `json:"visitedNodes"`
	SuspectedMisconceptions map[string]float64 `json:"suspectedMisconceptions"`
	ConfirmedMisconceptions []string           `json:"confirmedMisconceptions"`
	TotalTimeSeconds        int                `json:"totalTimeSeconds"`
}

// AdvanceView 一次提交的产出：要么给出下一题，要么给出最终结果。
type AdvanceView struct {
	Terminal bool               `json:"terminal"`
	NextNode *NodeView          `json:"nextNode,omitempty"`
	Result   *diagnostic.Result `json:"result,omitempty"`
}

// StartSession creates a session for a learner on a validated form and
// returns the root question.
func (s *DiagnosticService) StartSession(ctx context.Context, learnerID, formID string) (*SessionView, error) {
	form, err := s.Forms.FindByFormID(formID)
	if err != nil {
		return nil, err
	}
	if !form.Validated {
		return nil, util.ErrFormNotValidated
	}

	graph, err := s.Forms.Graph(ctx, formID)
	if err != nil {
		return nil, err
	}

	nav := diagnostic.NewNavigator(graph, s.Catalog, diagnostic.WithThresholds(s.currentThresholds()))
	session := nav.Start("SESSION-"+model.GenerateUUID(), learnerID, formID)

	record, err := model.NewSessionRecord(session)
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Create(record); err != nil {
		return nil, err
	}
	if err := s.Forms.IncrementAssigned(formID); err != nil {
		logger.Log.Warn("failed to bump assignment counter",
			zap.String("formId", formID), zap.Error(err))
	}

	monitoring.SessionsStarted.Inc()
	logger.Log.Info("diagnostic session started",
		zap.String("sessionId", session.SessionID),
		zap.String("learnerId", learnerID),
		zap.String("formId", formID))

	root, err := nav.CurrentNode(session)
	if err != nil {
		return nil, err
	}
	return sessionView(session, toNodeView(root)), nil
}

// SubmitResponse applies one answer to a session. Submissions for the same
// session are serialized; distinct sessions proceed in parallel.
func (s *DiagnosticService) SubmitResponse(ctx context.Context, sessionID, optionID string, elapsedSeconds int) (*AdvanceView, error) {
	lock := s.lockSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.Sessions.FindBySessionID(sessionID)
	if err != nil {
		s.sessionLocks.Delete(sessionID)
		return nil, err
	}
	session, err := record.State()
	if err != nil {
		return nil, err
	}
	// 只有进行中的会话才保留锁条目，防止 map 随已终止或不存在的
	// 会话 ID 无界增长。
	if session.Status != diagnostic.StatusInProgress {
		s.sessionLocks.Delete(sessionID)
		return nil, diagnostic.ErrSessionCompleted
	}

	graph, err := s.Forms.Graph(ctx, session.FormID)
	if err != nil {
		return nil, err
	}

	nav := diagnostic.NewNavigator(graph, s.Catalog, diagnostic.WithThresholds(s.currentThresholds()))
	outcome, err := nav.Advance(session, optionID, elapsedSeconds)
	if err != nil {
		return nil, err
	}

	if err := record.ApplyState(session); err != nil {
		return nil, err
	}

	if !outcome.Terminal {
		if err := s.Sessions.Update(record); err != nil {
			return nil, err
		}
		return &AdvanceView{NextNode: toNodeView(outcome.NextNode)}, nil
	}

	resultRecord, err := model.NewResultRecord(outcome.Result)
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.CompleteWithResult(record, resultRecord); err != nil {
		return nil, err
	}
	s.sessionLocks.Delete(sessionID)

	if s.Usage != nil && outcome.Result.PrimaryMisconception != "" {
		if err := s.Usage.IncrementUsage(outcome.Result.PrimaryMisconception); err != nil {
			logger.Log.Warn("failed to bump misconception usage",
				zap.String("tag", outcome.Result.PrimaryMisconception), zap.Error(err))
		}
	}

	monitoring.SessionsCompleted.Inc()
	monitoring.SessionDuration.Observe(float64(outcome.Result.TotalTimeSeconds))
	logger.Log.Info("diagnostic session completed",
		zap.String("sessionId", sessionID),
		zap.String("primary", outcome.Result.PrimaryMisconception),
		zap.String("severity", string(outcome.Result.Severity)),
		zap.Int("responses", len(outcome.Result.ResponsePath)))

	return &AdvanceView{Terminal: true, Result: outcome.Result}, nil
}

// GetSession returns current session state, including the pending question
// for in-progress sessions.
func (s *DiagnosticService) GetSession(ctx context.Context, sessionID string) (*SessionView, error) {
	record, err := s.Sessions.FindBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	session, err := record.State()
	if err != nil {
		return nil, err
	}

	var current *NodeView
	if session.Status == diagnostic.StatusInProgress {
		graph, err := s.Forms.Graph(ctx, session.FormID)
		if err != nil {
			return nil, err
		}
		if node, ok := graph.Node(session.CurrentNodeID); ok {
			current = toNodeView(&node)
		}
	}
	return sessionView(session, current), nil
}

// GetResult fetches the final result of a completed session.
func (s *DiagnosticService) GetResult(sessionID string) (*diagnostic.Result, error) {
	record, err := s.Results.FindBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	return record.ToResult()
}

// ListLearnerResults pages a learner's completed diagnoses, newest first.
func (s *DiagnosticService) ListLearnerResults(learnerID string, page, pageSize int) ([]diagnostic.Result, int64, error) {
	records, total, err := s.Results.ListByLearner(learnerID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	results := make([]diagnostic.Result, 0, len(records))
	for i := range records {
		r, err := records[i].ToResult()
		if err != nil {
			return nil, 0, err
		}
		results = append(results, *r)
	}
	return results, total, nil
}

// ReviewResult records a teacher's sign-off on a result.
func (s *DiagnosticService) ReviewResult(sessionID, notes string) error {
	return s.Results.MarkReviewed(sessionID, notes)
}

// AbandonSession marks an in-progress session abandoned. No result is ever
// synthesized for it.
func (s *DiagnosticService) AbandonSession(sessionID string) (*SessionView, error) {
	lock := s.lockSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.Sessions.FindBySessionID(sessionID)
	if err != nil {
		s.sessionLocks.Delete(sessionID)
		return nil, err
	}
	session, err := record.State()
	if err != nil {
		return nil, err
	}
	if session.Status == diagnostic.StatusCompleted {
		s.sessionLocks.Delete(sessionID)
		return nil, diagnostic.ErrSessionCompleted
	}
	session.Status = diagnostic.StatusAbandoned
	if err := record.ApplyState(session); err != nil {
		return nil, err
	}
	if err := s.Sessions.Update(record); err != nil {
		return nil, err
	}
	s.sessionLocks.Delete(sessionID)

	logger.Log.Info("diagnostic session abandoned", zap.String("sessionId", sessionID))
	return sessionView(session, nil), nil
}

func sessionView(s *diagnostic.Session, current *NodeView) *SessionView {
	return &SessionView{
		SessionID:               s.SessionID,
		LearnerID:               s.LearnerID,
		FormID:                  s.FormID,
		Status:                  string(s.Status),
		CurrentNode:             current,
		VisitedNodes:            s.VisitedNodes,
		SuspectedMisconceptions: s.SuspectedMisconceptions,
		ConfirmedMisconceptions: s.ConfirmedMisconceptions,
		TotalTimeSeconds:        s.TotalTimeSeconds,
	}
}

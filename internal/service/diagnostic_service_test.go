package service

import (
	"context"
	"encoding/json"
	"testing"

	"mathdiag_backend/internal/diagnostic"
	"mathdiag_backend/internal/model"
	"mathdiag_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- in-memory stores ----

type memFormStore struct {
	forms    map[string]*model.DiagnosticForm
	assigned map[string]int
}

func newMemFormStore() *memFormStore {
	return &memFormStore{forms: map[string]*model.DiagnosticForm{}, assigned: map[string]int{}}
}

func (m *memFormStore) FindByFormID(formID string) (*model.DiagnosticForm, error) {
	f, ok := m.forms[formID]
	if !ok {
		return nil, util.ErrFormNotFound
	}
	return f, nil
}

func (m *memFormStore) Graph(_ context.Context, formID string) (*diagnostic.Graph, error) {
	f, err := m.FindByFormID(formID)
	if err != nil {
		return nil, err
	}
	return diagnostic.ParseGraph(f.Graph)
}

func (m *memFormStore) IncrementAssigned(formID string) error {
	m.assigned[formID]++
	return nil
}

type memSessionStore struct {
	sessions  map[string]*model.DiagnosticSession
	results   map[string]*model.DiagnosticResult
	completes int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		sessions: map[string]*model.DiagnosticSession{},
		results:  map[string]*model.DiagnosticResult{},
	}
}

func (m *memSessionStore) Create(s *model.DiagnosticSession) error {
	m.sessions[s.SessionID] = s
	return nil
}

func (m *memSessionStore) FindBySessionID(sessionID string) (*model.DiagnosticSession, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessionStore) Update(s *model.DiagnosticSession) error {
	m.sessions[s.SessionID] = s
	return nil
}

func (m *memSessionStore) CompleteWithResult(s *model.DiagnosticSession, r *model.DiagnosticResult) error {
	m.sessions[s.SessionID] = s
	m.results[r.SessionID] = r
	m.completes++
	return nil
}

func (m *memSessionStore) FindResult(sessionID string) (*model.DiagnosticResult, error) {
	r, ok := m.results[sessionID]
	if !ok {
		return nil, util.ErrResultNotFound
	}
	return r, nil
}

type memResultStore struct {
	sessions *memSessionStore
}

func (m *memResultStore) FindBySessionID(sessionID string) (*model.DiagnosticResult, error) {
	return m.sessions.FindResult(sessionID)
}

func (m *memResultStore) ListByLearner(learnerID string, page, pageSize int) ([]model.DiagnosticResult, int64, error) {
	var out []model.DiagnosticResult
	for _, r := range m.sessions.results {
		if r.LearnerID == learnerID {
			out = append(out, *r)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memResultStore) MarkReviewed(sessionID, notes string) error {
	r, ok := m.sessions.results[sessionID]
	if !ok {
		return util.ErrResultNotFound
	}
	r.ReviewedByTeacher = true
	r.TeacherNotes = notes
	return nil
}

type stubCatalog map[string]diagnostic.Severity

func (c stubCatalog) SeverityFor(tag string) (diagnostic.Severity, bool) {
	sev, ok := c[tag]
	return sev, ok
}

// ---- fixture ----

func fractionGraphJSON(t *testing.T) json.RawMessage {
	t.Helper()
	graph := map[string]interface{}{
		"root_node_id": "R1",
		"max_depth":    3,
		"nodes": map[string]interface{}{
			"R1": map[string]interface{}{
				"node_id": "R1",
				"type":    "item",
				"stem":    "1/2 + 1/3 = ?",
				"correct_answer": map[string]interface{}{
					"option_id": "A", "value": "5/6", "reasoning": "common denominator",
				},
				"distractors": []map[string]interface{}{
					{"option_id": "B", "value": "2/5", "misconception_tag": "misc_004", "confidence_weight": 0.9},
				},
			},
			"P1": map[string]interface{}{
				"node_id":           "P1",
				"type":              "probe",
				"stem":              "1/4 + 1/4 = ?",
				"parent_node_id":    "R1",
				"misconception_tag": "misc_004",
				"correct_answer": map[string]interface{}{
					"option_id": "A", "value": "1/2", "reasoning": "same denominator",
				},
				"distractors": []map[string]interface{}{
					{"option_id": "B", "value": "2/8", "misconception_tag": "misc_004", "confidence_weight": 0.9},
				},
			},
		},
		"edges": []map[string]interface{}{
			{"from_node_id": "R1", "option_selected": "A", "to_node_id": nil, "confidence_delta": 0},
			{"from_node_id": "R1", "option_selected": "B", "to_node_id": "P1", "misconception_tag": "misc_004", "confidence_delta": 0.5},
			{"from_node_id": "P1", "option_selected": "A", "to_node_id": nil, "misconception_tag": "misc_004", "confidence_delta": -0.3},
			{"from_node_id": "P1", "option_selected": "B", "to_node_id": nil, "misconception_tag": "misc_004", "confidence_delta": 0.45},
		},
	}
	raw, err := json.Marshal(graph)
	require.NoError(t, err)
	return raw
}

func newTestService(t *testing.T) (*DiagnosticService, *memFormStore, *memSessionStore) {
	t.Helper()
	forms := newMemFormStore()
	forms.forms["FORM-1"] = &model.DiagnosticForm{
		FormID:     "FORM-1",
		Title:      "分数加法诊断",
		RootNodeID: "R1",
		MaxDepth:   3,
		Graph:      fractionGraphJSON(t),
		Validated:  true,
	}
	sessions := newMemSessionStore()
	svc := NewDiagnosticService(
		forms,
		sessions,
		&memResultStore{sessions: sessions},
		stubCatalog{"misc_004": diagnostic.SeverityHigh},
		diagnostic.DefaultThresholds(),
	)
	return svc, forms, sessions
}

// ---- tests ----

func TestStartSession(t *testing.T) {
	svc, forms, _ := newTestService(t)

	view, err := svc.StartSession(context.Background(), "learner-1", "FORM-1")
	require.NoError(t, err)

	assert.Contains(t, view.SessionID, "SESSION-")
	assert.Equal(t, "in_progress", view.Status)
	require.NotNil(t, view.CurrentNode)
	assert.Equal(t, "R1", view.CurrentNode.NodeID)
	assert.Len(t, view.CurrentNode.Options, 2)
	assert.Equal(t, 1, forms.assigned["FORM-1"])
}

func TestStartSession_FormMissing(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.StartSession(context.Background(), "learner-1", "FORM-404")
	assert.ErrorIs(t, err, util.ErrFormNotFound)
}

func TestStartSession_FormNotValidated(t *testing.T) {
	svc, forms, _ := newTestService(t)
	forms.forms["FORM-1"].Validated = false

	_, err := svc.StartSession(context.Background(), "learner-1", "FORM-1")
	assert.ErrorIs(t, err, util.ErrFormNotValidated)
}

func TestSubmitResponse_FullWalk(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := context.Background()

	view, err := svc.StartSession(ctx, "learner-1", "FORM-1")
	require.NoError(t, err)

	// Distractor at the root routes to the confirming probe.
	adv, err := svc.SubmitResponse(ctx, view.SessionID, "B", 30)
	require.NoError(t, err)
	assert.False(t, adv.Terminal)
	require.NotNil(t, adv.NextNode)
	assert.Equal(t, "P1", adv.NextNode.NodeID)

	// Probe distractor confirms and terminates on a leaf edge.
	adv, err = svc.SubmitResponse(ctx, view.SessionID, "B", 25)
	require.NoError(t, err)
	assert.True(t, adv.Terminal)
	require.NotNil(t, adv.Result)
	assert.Equal(t, "misc_004", adv.Result.PrimaryMisconception)
	assert.Equal(t, diagnostic.SeverityHigh, adv.Result.Severity)
	assert.Equal(t, 55, adv.Result.TotalTimeSeconds)
	assert.Equal(t, []string{"R1", "P1"}, adv.Result.ResponsePath)

	// Session and result landed together.
	assert.Equal(t, 1, sessions.completes)
	stored, err := svc.GetResult(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "misc_004", stored.PrimaryMisconception)
}

func TestSubmitResponse_UnknownOptionLeavesStateIntact(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.StartSession(ctx, "learner-1", "FORM-1")
	require.NoError(t, err)

	_, err = svc.SubmitResponse(ctx, view.SessionID, "Z", 10)
	assert.ErrorIs(t, err, diagnostic.ErrUnknownOption)

	got, err := svc.GetSession(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", got.Status)
	assert.Empty(t, got.VisitedNodes)
	assert.Equal(t, 0, got.TotalTimeSeconds)
	require.NotNil(t, got.CurrentNode)
	assert.Equal(t, "R1", got.CurrentNode.NodeID)
}

func TestSubmitResponse_AfterCompletionRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.StartSession(ctx, "learner-1", "FORM-1")
	require.NoError(t, err)

	_, err = svc.SubmitResponse(ctx, view.SessionID, "A", 20)
	require.NoError(t, err)

	_, err = svc.SubmitResponse(ctx, view.SessionID, "A", 5)
	assert.ErrorIs(t, err, diagnostic.ErrSessionCompleted)
}

func TestSubmitResponse_SessionMissing(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SubmitResponse(context.Background(), "SESSION-nope", "A", 5)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestGetResult_BeforeCompletion(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.StartSession(ctx, "learner-1", "FORM-1")
	require.NoError(t, err)

	_, err = svc.GetResult(view.SessionID)
	assert.ErrorIs(t, err, util.ErrResultNotFound)
}

func TestAbandonSession(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := context.Background()

	view, err := svc.StartSession(ctx, "learner-1", "FORM-1")
	require.NoError(t, err)

	got, err := svc.AbandonSession(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "abandoned", got.Status)

	// No result is synthesized for an abandoned session.
	_, err = svc.GetResult(view.SessionID)
	assert.ErrorIs(t, err, util.ErrResultNotFound)
	assert.Equal(t, 0, sessions.completes)

	// And it cannot keep advancing.
	_, err = svc.SubmitResponse(ctx, view.SessionID, "A", 5)
	assert.ErrorIs(t, err, diagnostic.ErrSessionCompleted)
}

func TestAbandonSession_CompletedRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.StartSession(ctx, "learner-1", "FORM-1")
	require.NoError(t, err)
	_, err = svc.SubmitResponse(ctx, view.SessionID, "A", 20)
	require.NoError(t, err)

	_, err = svc.AbandonSession(view.SessionID)
	assert.ErrorIs(t, err, diagnostic.ErrSessionCompleted)
}

func lockCount(svc *DiagnosticService) int {
	n := 0
	svc.sessionLocks.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func TestSessionLocksPrunedForTerminalSessions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.StartSession(ctx, "learner-1", "FORM-1")
	require.NoError(t, err)

	// Completion drops the lock entry.
	_, err = svc.SubmitResponse(ctx, view.SessionID, "A", 20)
	require.NoError(t, err)
	assert.Equal(t, 0, lockCount(svc))

	// Re-submitting against the completed session must not leave one behind.
	_, err = svc.SubmitResponse(ctx, view.SessionID, "A", 5)
	assert.ErrorIs(t, err, diagnostic.ErrSessionCompleted)
	assert.Equal(t, 0, lockCount(svc))

	// Neither must probing unknown session ids.
	_, err = svc.SubmitResponse(ctx, "SESSION-ghost", "A", 5)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
	assert.Equal(t, 0, lockCount(svc))

	_, err = svc.AbandonSession("SESSION-ghost")
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
	assert.Equal(t, 0, lockCount(svc))

	// An in-progress session legitimately holds exactly one entry.
	view2, err := svc.StartSession(ctx, "learner-2", "FORM-1")
	require.NoError(t, err)
	_, err = svc.SubmitResponse(ctx, view2.SessionID, "B", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, lockCount(svc))

	// Abandoning it releases the entry again.
	_, err = svc.AbandonSession(view2.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, lockCount(svc))
}

func TestListLearnerResultsAndReview(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.StartSession(ctx, "learner-1", "FORM-1")
	require.NoError(t, err)
	_, err = svc.SubmitResponse(ctx, view.SessionID, "B", 30)
	require.NoError(t, err)
	_, err = svc.SubmitResponse(ctx, view.SessionID, "B", 25)
	require.NoError(t, err)

	results, total, err := svc.ListLearnerResults("learner-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, results, 1)
	assert.Equal(t, "misc_004", results[0].PrimaryMisconception)

	require.NoError(t, svc.ReviewResult(view.SessionID, "remediate with fraction strips"))
	assert.ErrorIs(t, svc.ReviewResult("SESSION-nope", "x"), util.ErrResultNotFound)
}

func TestUpdateThresholds_AffectsNextSubmission(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Lower the early-exit bar so the root distractor's 0.5 signal exits
	// immediately instead of routing to the probe.
	svc.UpdateThresholds(diagnostic.Thresholds{Confirm: 0.85, EarlyExit: 0.4})

	view, err := svc.StartSession(ctx, "learner-1", "FORM-1")
	require.NoError(t, err)

	adv, err := svc.SubmitResponse(ctx, view.SessionID, "B", 10)
	require.NoError(t, err)
	assert.True(t, adv.Terminal)
	require.NotNil(t, adv.Result)
	assert.Equal(t, []string{"R1"}, adv.Result.ResponsePath)
}

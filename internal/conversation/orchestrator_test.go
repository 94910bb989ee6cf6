package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/medcompanion-ai/internal/llm"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

func TestOrchestrator_HappyPath(t *testing.T) {
	gen := &stubGenerator{response: "I hear you."}
	evaluator := &stubEvaluator{result: EvaluationResult{Verdict: goodVerdict()}}
	revisor := &stubRevisor{result: RevisionResult{Reply: "should not be used"}}
	recorder := &stubRecorder{}

	o := NewOrchestrator(gen, evaluator, revisor, logging.Default(), WithRecorder(recorder))

	reply, err := o.ProduceReply(context.Background(), "user-1", "I feel tired today", nil)
	require.NoError(t, err)
	assert.Equal(t, "I hear you.", reply)
	assert.Equal(t, 1, evaluator.calls)
	assert.Equal(t, "I feel tired today", evaluator.gotMsg)
	assert.Equal(t, "I hear you.", evaluator.gotRep)
	assert.Equal(t, 0, revisor.calls)

	require.Len(t, recorder.outcomes, 1)
	outcome := recorder.outcomes[0]
	assert.Equal(t, "user-1", outcome.UserID)
	assert.False(t, outcome.NeedsRevision)
	assert.False(t, outcome.Revised)
}

func TestOrchestrator_RevisionPath(t *testing.T) {
	gen := &stubGenerator{response: "I hear you."}
	verdict := goodVerdict()
	verdict.SafetyConcern = true
	evaluator := &stubEvaluator{result: EvaluationResult{Verdict: verdict}}
	revisor := &stubRevisor{result: RevisionResult{Reply: "Revised text."}}
	recorder := &stubRecorder{}

	o := NewOrchestrator(gen, evaluator, revisor, nil, WithRecorder(recorder))

	reply, err := o.ProduceReply(context.Background(), "user-1", "Should I stop my meds?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Revised text.", reply)
	assert.Equal(t, 1, revisor.calls)
	assert.Equal(t, verdict, revisor.gotVerdict)

	require.Len(t, recorder.outcomes, 1)
	assert.True(t, recorder.outcomes[0].NeedsRevision)
	assert.True(t, recorder.outcomes[0].Revised)
}

func TestOrchestrator_RevisionFailureKeepsCandidate(t *testing.T) {
	gen := &stubGenerator{response: "I hear you."}
	verdict := goodVerdict()
	verdict.ConcisenessLength = false
	evaluator := &stubEvaluator{result: EvaluationResult{Verdict: verdict}}
	revisor := &stubRevisor{result: RevisionResult{Reply: "I hear you.", Err: errors.New("throttled")}}
	recorder := &stubRecorder{}

	o := NewOrchestrator(gen, evaluator, revisor, nil, WithRecorder(recorder))

	reply, err := o.ProduceReply(context.Background(), "user-1", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "I hear you.", reply)
	require.Len(t, recorder.outcomes, 1)
	assert.True(t, recorder.outcomes[0].NeedsRevision)
	assert.False(t, recorder.outcomes[0].Revised)
	assert.Error(t, recorder.outcomes[0].RevisionErr)
}

func TestOrchestrator_EvaluationFailOpenReturnsCandidate(t *testing.T) {
	gen := &stubGenerator{response: "I hear you."}
	evaluator := &stubEvaluator{result: EvaluationResult{Verdict: FailOpenVerdict(), Err: errors.New("bad json")}}
	revisor := &stubRevisor{}

	o := NewOrchestrator(gen, evaluator, revisor, nil)

	reply, err := o.ProduceReply(context.Background(), "user-1", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "I hear you.", reply)
	assert.Equal(t, 0, revisor.calls)
}

func TestOrchestrator_GenerationFailure(t *testing.T) {
	genErr := &llm.GenerationError{Op: "reply", Err: errors.New("connection refused")}
	gen := &stubGenerator{err: genErr}
	evaluator := &stubEvaluator{}
	revisor := &stubRevisor{}
	recorder := &stubRecorder{}

	o := NewOrchestrator(gen, evaluator, revisor, nil, WithRecorder(recorder))

	reply, err := o.ProduceReply(context.Background(), "user-1", "hi", nil)
	require.Error(t, err)
	assert.Empty(t, reply)
	assert.True(t, llm.IsGenerationError(err))
	assert.Equal(t, 0, evaluator.calls)
	assert.Equal(t, 0, revisor.calls)
	assert.Empty(t, recorder.outcomes)
}

func TestOrchestrator_EmptyMessage(t *testing.T) {
	gen := &stubGenerator{response: "unused"}
	o := NewOrchestrator(gen, &stubEvaluator{}, &stubRevisor{}, nil)

	_, err := o.ProduceReply(context.Background(), "user-1", "  \n", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, gen.calls())
}

func TestOrchestrator_PreservesHistoryOrder(t *testing.T) {
	gen := &stubGenerator{response: "Nice work logging that."}
	o := NewOrchestrator(gen, &stubEvaluator{result: EvaluationResult{Verdict: goodVerdict()}}, &stubRevisor{}, nil,
		WithPersona("custom persona"))

	history := HistoryFromPairs([]HistoryPair{
		{User: "hi", Assistant: "hello!"},
		{User: "I took my meds", Assistant: "well done"},
		{User: "feeling better", Assistant: "glad to hear"},
	})
	snapshot := append(History(nil), history...)

	_, err := o.ProduceReply(context.Background(), "user-1", "logged my mood too", history)
	require.NoError(t, err)

	req := gen.last()
	assert.Equal(t, "reply", req.Op)
	assert.Equal(t, "custom persona", req.Instructions)
	assert.Equal(t, "logged my mood too", req.NewUserText)
	require.Len(t, req.History, 6)
	wantText := []string{"hi", "hello!", "I took my meds", "well done", "feeling better", "glad to hear"}
	for i, msg := range req.History {
		assert.Equal(t, wantText[i], msg.Content)
		if i%2 == 0 {
			assert.Equal(t, llm.RoleUser, msg.Role)
		} else {
			assert.Equal(t, llm.RoleAssistant, msg.Role)
		}
	}
	assert.Equal(t, snapshot, history)
}

func TestOrchestrator_DefaultPersona(t *testing.T) {
	gen := &stubGenerator{response: "ok"}
	o := NewOrchestrator(gen, &stubEvaluator{result: EvaluationResult{Verdict: goodVerdict()}}, &stubRevisor{}, nil,
		WithPersona("   "))

	_, err := o.ProduceReply(context.Background(), "user-1", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPersona, gen.last().Instructions)
}

func TestOrchestrator_RecordsStageLatency(t *testing.T) {
	var mu sync.Mutex
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	recorder := &stubRecorder{}
	verdict := goodVerdict()
	verdict.Helpful = false
	o := NewOrchestrator(&stubGenerator{response: "ok"},
		&stubEvaluator{result: EvaluationResult{Verdict: verdict}},
		&stubRevisor{result: RevisionResult{Reply: "better"}},
		nil, WithRecorder(recorder), withClock(clock))

	_, err := o.ProduceReply(context.Background(), "user-1", "hi", nil)
	require.NoError(t, err)
	require.Len(t, recorder.outcomes, 1)
	assert.Equal(t, time.Second, recorder.outcomes[0].GenerationLatency)
	assert.Equal(t, time.Second, recorder.outcomes[0].EvaluationLatency)
	assert.Equal(t, time.Second, recorder.outcomes[0].RevisionLatency)
}

func TestOrchestrator_ConcurrentRequests(t *testing.T) {
	gen := &stubGenerator{response: "I hear you."}
	evaluator := &concurrentEvaluator{}
	o := NewOrchestrator(gen, evaluator, &stubRevisor{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := o.ProduceReply(context.Background(), "user", "hi", nil)
			assert.NoError(t, err)
			assert.Equal(t, "I hear you.", reply)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, gen.calls())
}

type concurrentEvaluator struct{}

func (concurrentEvaluator) Evaluate(ctx context.Context, userMessage, candidate string) EvaluationResult {
	return EvaluationResult{Verdict: goodVerdict()}
}

func TestNewOrchestratorPanicsOnNilCollaborators(t *testing.T) {
	gen := &stubGenerator{}
	assert.Panics(t, func() { NewOrchestrator(nil, &stubEvaluator{}, &stubRevisor{}, nil) })
	assert.Panics(t, func() { NewOrchestrator(gen, nil, &stubRevisor{}, nil) })
	assert.Panics(t, func() { NewOrchestrator(gen, &stubEvaluator{}, nil, nil) })
}

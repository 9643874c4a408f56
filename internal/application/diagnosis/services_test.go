package diagnosis_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdiag "github.com/bryanwahyu/prodpulse/internal/application/diagnosis"
	"github.com/bryanwahyu/prodpulse/internal/domain/analysis"
	domain "github.com/bryanwahyu/prodpulse/internal/domain/diagnosis"
)

type fakeBackend struct {
	calls  atomic.Int32
	text   string
	err    error
	panics bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Diagnose(ctx context.Context, logText string) (string, error) {
	f.calls.Add(1)
	if f.panics {
		panic("unexpected nil response")
	}
	return f.text, f.err
}

type countingObserver struct{ n atomic.Int32 }

func (o *countingObserver) ObserveFallback(string) { o.n.Add(1) }

func TestProduceSuccess(t *testing.T) {
	backend := &fakeBackend{text: "<div>root cause</div>"}
	svc := appdiag.NewService(backend)

	out := svc.Produce(context.Background(), "ERROR: boom happened")
	assert.Equal(t, "<div>root cause</div>", out.Text)
	assert.Equal(t, "fake", out.Backend)
	assert.False(t, out.Fallback)
	assert.NoError(t, out.Cause)
	assert.EqualValues(t, 1, backend.calls.Load())
}

func TestProduceFallsBackOnError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("503 service unavailable")}
	obs := &countingObserver{}
	svc := appdiag.NewService(backend, appdiag.WithFallbackObserver(obs))

	input := "ERROR: cannot reach payments <svc>"
	for i := 0; i < 2; i++ {
		out := svc.Produce(context.Background(), input)
		assert.True(t, out.Fallback)
		assert.Equal(t, analysis.BackendFallback, out.Backend)
		assert.Contains(t, out.Text, "ERROR: cannot reach payments &lt;svc&gt;")
		assert.Contains(t, out.Text, "Verify database connection strings")
		assert.Error(t, out.Cause)
	}
	// one backend call per Produce, never retried
	assert.EqualValues(t, 2, backend.calls.Load())
	assert.EqualValues(t, 2, obs.n.Load())
}

func TestProduceFallsBackOnEmptyResponse(t *testing.T) {
	backend := &fakeBackend{text: "   \n"}
	out := appdiag.NewService(backend).Produce(context.Background(), "Exception in thread main")
	assert.True(t, out.Fallback)
	assert.ErrorIs(t, out.Cause, domain.ErrEmptyResponse)
}

func TestProduceFallsBackOnQuota(t *testing.T) {
	backend := &fakeBackend{err: domain.ErrQuotaExceeded}
	out := appdiag.NewService(backend).Produce(context.Background(), "timeout talking to redis")
	assert.True(t, out.Fallback)
	assert.ErrorIs(t, out.Cause, domain.ErrQuotaExceeded)
}

func TestProduceRecoversPanic(t *testing.T) {
	backend := &fakeBackend{panics: true}
	out := appdiag.NewService(backend).Produce(context.Background(), "fatal: repository not found")
	assert.True(t, out.Fallback)
	require.Error(t, out.Cause)
	assert.Contains(t, out.Cause.Error(), "panic")
	assert.EqualValues(t, 1, backend.calls.Load())
}

func TestProduceWithoutBackend(t *testing.T) {
	svc := appdiag.NewService(nil)
	assert.Equal(t, "none", svc.BackendName())
	out := svc.Produce(context.Background(), "some error happened here")
	assert.True(t, out.Fallback)
}

func TestFallbackDocumentTruncatesInput(t *testing.T) {
	long := strings.Repeat("a", 600)
	doc := appdiag.FallbackDocument(long)
	assert.Contains(t, doc, strings.Repeat("a", 500)+"...")
	assert.NotContains(t, doc, strings.Repeat("a", 501))

	short := strings.Repeat("b", 500)
	doc = appdiag.FallbackDocument(short)
	assert.Contains(t, doc, short+"</pre>")
}

func TestFallbackDocumentIsDeterministic(t *testing.T) {
	input := "panic: runtime error: index out of range"
	assert.Equal(t, appdiag.FallbackDocument(input), appdiag.FallbackDocument(input))
}

package offline_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/prodpulse/internal/infra/ai/offline"
)

func TestAnalyzeDetectsKnownPatterns(t *testing.T) {
	cases := []struct {
		log  string
		want string
	}{
		{"java.lang.OutOfMemoryError: Java heap space", "Process ran out of memory"},
		{"Error: connect ECONNREFUSED 127.0.0.1:5432", "Connection to a dependency failed"},
		{"Error: listen EADDRINUSE: address already in use :::3000", "Port already in use"},
		{"Error: Cannot find module 'express'", "Dependency not found"},
		{"NullPointerException at com.app.Service.process(Service.java:42)", "Null reference"},
		{"context deadline exceeded while calling payments", "Operation timed out"},
		{"open /data/app.db: permission denied", "Permission denied"},
		{"dial tcp: lookup db.internal: no such host", "Host name could not be resolved"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			out := offline.Analyze(tc.log)
			assert.Contains(t, out, tc.want)
			assert.True(t, strings.HasPrefix(out, `<div class="diagnosis">`))
		})
	}
}

func TestAnalyzeUnknownLog(t *testing.T) {
	out := offline.Analyze("something odd happened in the worker")
	assert.Contains(t, out, "No known failure pattern")
}

func TestAnalyzeEscapesMatches(t *testing.T) {
	out := offline.Analyze("<b>timeout</b> waiting for <script>")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>timeout")
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	log := "FATAL: out of memory\nconnection refused"
	assert.Equal(t, offline.Analyze(log), offline.Analyze(log))
}

func TestBackend(t *testing.T) {
	b := offline.New()
	assert.Equal(t, "offline", b.Name())

	out, err := b.Diagnose(context.Background(), "ECONNREFUSED")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Diagnose(ctx, "ECONNREFUSED")
	assert.ErrorIs(t, err, context.Canceled)
}

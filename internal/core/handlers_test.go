package core

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func allRecording() []*recordingHandler {
	var out []*recordingHandler
	for _, c := range NewTaxonomy("").Categories() {
		out = append(out, &recordingHandler{category: c})
	}
	return out
}

func asHandlers(rs []*recordingHandler) []Handler {
	out := make([]Handler, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out
}

func TestNewHandlerRegistry(t *testing.T) {
	tax := NewTaxonomy("")
	logger := zap.NewNop()

	t.Run("accepts one handler per category", func(t *testing.T) {
		reg, err := NewHandlerRegistry(tax, logger, asHandlers(allRecording())...)
		require.NoError(t, err)
		assert.NotNil(t, reg)
	})

	t.Run("rejects missing category", func(t *testing.T) {
		hs := allRecording()[:4]
		_, err := NewHandlerRegistry(tax, logger, asHandlers(hs)...)
		assert.ErrorContains(t, err, `no handler registered for category "other"`)
	})

	t.Run("rejects duplicate category", func(t *testing.T) {
		hs := append(allRecording(), &recordingHandler{category: CategoryFeedback})
		_, err := NewHandlerRegistry(tax, logger, asHandlers(hs)...)
		assert.ErrorContains(t, err, "duplicate handler")
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		hs := append(allRecording(), &recordingHandler{category: "spam"})
		_, err := NewHandlerRegistry(tax, logger, asHandlers(hs)...)
		assert.ErrorContains(t, err, "unknown category")
	})

	t.Run("default handlers cover the taxonomy", func(t *testing.T) {
		_, err := NewHandlerRegistry(tax, logger, DefaultHandlers(nil, logger)...)
		assert.NoError(t, err)
	})
}

func TestHandlerRegistry_Dispatch(t *testing.T) {
	tax := NewTaxonomy("")
	logger, _ := observedLogger()

	t.Run("invokes only the matching handler once", func(t *testing.T) {
		hs := allRecording()
		reg, err := NewHandlerRegistry(tax, logger, asHandlers(hs)...)
		require.NoError(t, err)

		res := reg.Dispatch(context.Background(), CategoryFeedback, sampleEmail())

		assert.NoError(t, res.Err)
		assert.Equal(t, CategoryFeedback, res.Category)
		for _, h := range hs {
			want := 0
			if h.category == CategoryFeedback {
				want = 1
			}
			assert.Equal(t, want, h.calls, h.category)
		}
	})

	t.Run("captures handler errors", func(t *testing.T) {
		hs := allRecording()
		hs[0].err = errors.New("ticket system down")
		reg, err := NewHandlerRegistry(tax, logger, asHandlers(hs)...)
		require.NoError(t, err)

		res := reg.Dispatch(context.Background(), CategoryComplaint, sampleEmail())
		assert.EqualError(t, res.Err, "ticket system down")
	})

	t.Run("captures panics", func(t *testing.T) {
		hs := allRecording()
		hs[1].panicked = true
		reg, err := NewHandlerRegistry(tax, logger, asHandlers(hs)...)
		require.NoError(t, err)

		var res HandlerResult
		assert.NotPanics(t, func() {
			res = reg.Dispatch(context.Background(), CategoryInquiry, sampleEmail())
		})
		assert.ErrorContains(t, res.Err, "handler panicked: boom")
	})
}

func TestDefaultHandlers_FileTickets(t *testing.T) {
	store := &memoryTickets{}
	logger := zap.NewNop()
	reg, err := NewHandlerRegistry(NewTaxonomy(""), logger, DefaultHandlers(store, logger)...)
	require.NoError(t, err)

	expected := map[Category]struct {
		kind     TicketKind
		priority TicketPriority
	}{
		CategoryComplaint:      {TicketKindUrgent, PriorityUrgent},
		CategoryInquiry:        {TicketKindInquiry, PriorityNormal},
		CategoryFeedback:       {TicketKindFeedback, PriorityLow},
		CategorySupportRequest: {TicketKindSupport, PriorityNormal},
	}

	for c, want := range expected {
		email := sampleEmail()
		email.ID = string(c) + "-1"
		res := reg.Dispatch(context.Background(), c, email)
		require.NoError(t, res.Err)

		tickets, err := store.ListTickets(context.Background(), email.ID)
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, want.kind, tickets[0].Kind)
		assert.Equal(t, want.priority, tickets[0].Priority)
		assert.Equal(t, c, tickets[0].Category)
		assert.Contains(t, tickets[0].Context, email.Body)
	}

	res := reg.Dispatch(context.Background(), CategoryOther, sampleEmail())
	assert.NoError(t, res.Err)
	assert.Len(t, store.tickets, 4)
}

func TestDefaultHandlers_StoreFailureIsReported(t *testing.T) {
	store := &memoryTickets{err: errors.New("disk full")}
	logger := zap.NewNop()
	reg, err := NewHandlerRegistry(NewTaxonomy(""), logger, DefaultHandlers(store, logger)...)
	require.NoError(t, err)

	res := reg.Dispatch(context.Background(), CategorySupportRequest, sampleEmail())
	assert.ErrorContains(t, res.Err, "disk full")
}

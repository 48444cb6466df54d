package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/contacts_api/pkg/notify"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	fetchErr  error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		if r.fetchErr != nil {
			return kafka.Message{}, r.fetchErr
		}
		return kafka.Message{}, context.Canceled
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	got  []notify.Notification
	fail bool
}

func (s *recordingSender) Send(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	if s.fail {
		return errors.New("smtp down")
	}
	return nil
}

func event(t *testing.T, offset int64, n notify.Notification) kafka.Message {
	t.Helper()
	b, err := notify.Encode(n)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumer_Run(t *testing.T) {
	t.Parallel()

	verify := notify.Notification{Email: "alice@example.com", Token: "t1", Purpose: notify.PurposeVerifyEmail}
	reset := notify.Notification{Email: "bob@example.com", Token: "t2", Purpose: notify.PurposeResetPassword}

	r := &fakeReader{msgs: []kafka.Message{
		event(t, 1, verify),
		{Offset: 2, Value: []byte(`{"email":"x@example.com","token":"t","purpose":"welcome"}`)},
		event(t, 3, reset),
	}}
	s := &recordingSender{}

	c := &Consumer{Reader: r, Sender: s, Log: quietLogger()}
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []notify.Notification{verify, reset}, s.got)
	assert.Equal(t, []int64{1, 2, 3}, r.committed)
}

func TestConsumer_CommitsEvenWhenDeliveryFails(t *testing.T) {
	t.Parallel()

	r := &fakeReader{msgs: []kafka.Message{
		event(t, 7, notify.Notification{Email: "alice@example.com", Token: "t", Purpose: notify.PurposeVerifyEmail}),
	}}
	s := &recordingSender{fail: true}

	c := &Consumer{Reader: r, Sender: s, Log: quietLogger()}
	require.NoError(t, c.Run(context.Background()))

	assert.Len(t, s.got, 1)
	assert.Equal(t, []int64{7}, r.committed)
}

func TestConsumer_FetchError(t *testing.T) {
	t.Parallel()

	c := &Consumer{Reader: &fakeReader{fetchErr: io.ErrUnexpectedEOF}, Sender: &recordingSender{}, Log: quietLogger()}
	assert.ErrorIs(t, c.Run(context.Background()), io.ErrUnexpectedEOF)
}

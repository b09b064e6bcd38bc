package dispatcher

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type dispatcherSuite struct {
	suite.Suite
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(dispatcherSuite))
}

func (s *dispatcherSuite) TearDownTest() {
	goleak.VerifyNone(s.T())
}

type echoWorker struct {
	mu   sync.Mutex
	seen []string
}

func (w *echoWorker) Do(t Task) error {
	p, ok := t.Payload.(string)
	if !ok {
		return ErrInvalidPayload
	}
	w.mu.Lock()
	w.seen = append(w.seen, p)
	w.mu.Unlock()
	t.SetResult("echo:" + p)
	return nil
}

func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

func (s *dispatcherSuite) TestDispatch() {
	w := &echoWorker{}
	d := Start(20, w, 1000)

	results := map[string]*Result{}
	for i := 0; i < 500; i++ {
		p := randomString(12)
		results[p] = d.Dispatch(p)
	}

	s.Require().Eventually(func() bool {
		for _, r := range results {
			if !r.Done() {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	for p, r := range results {
		s.False(r.Failed())
		s.Equal("echo:"+p, r.Value())
	}

	w.mu.Lock()
	s.Len(w.seen, 500)
	w.mu.Unlock()

	d.Stop()
}

func (s *dispatcherSuite) TestDispatchFailure() {
	d := Start(2, &echoWorker{}, 10)

	r := d.Dispatch(12345)
	s.Require().Eventually(func() bool { return r.Failed() }, 5*time.Second, 10*time.Millisecond)
	s.True(errors.Is(r.Error, ErrInvalidPayload))
	s.False(r.Done())

	d.Stop()
}

func (s *dispatcherSuite) TestTryDispatchDrops() {
	started := make(chan struct{})
	block := make(chan struct{})
	d := Start(1, workloadFunc(func(t Task) error {
		close(started)
		<-block
		return nil
	}), 0)

	// Occupy the only worker, then overflow the zero-length queue.
	first := d.Dispatch("held")
	<-started

	dropped := d.TryDispatch("overflow")
	s.Equal(TaskDropped, dropped.Status)

	close(block)
	d.Stop()
	s.True(first.Done())
}

type workloadFunc func(Task) error

func (f workloadFunc) Do(t Task) error { return f(t) }

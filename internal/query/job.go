package query

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// resultBuffer is how many batches a job may produce ahead of its consumer.
const resultBuffer = 8

// Job is one execution of a query. Its batches arrive on Results, which is
// closed after the last batch; Done is closed right after that. The
// consumer must drain Results or Abort the job.
type Job struct {
	id  string
	typ Type

	results chan Result
	done    chan struct{}

	abortCh   chan struct{}
	abortOnce sync.Once
	aborted   atomic.Bool

	err error
}

func newJob(t Type) *Job {
	return &Job{
		id:      uuid.NewString(),
		typ:     t,
		results: make(chan Result, resultBuffer),
		done:    make(chan struct{}),
		abortCh: make(chan struct{}),
	}
}

// ID identifies the job in logs.
func (j *Job) ID() string {
	return j.id
}

func (j *Job) Type() Type {
	return j.typ
}

func (j *Job) Results() <-chan Result {
	return j.results
}

// Done is closed once every batch has been delivered.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) Finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Abort stops the delivery of batches. The query itself runs to completion
// but its output is dropped; Done is still closed and Err reports ErrAborted.
func (j *Job) Abort() {
	j.abortOnce.Do(func() {
		j.aborted.Store(true)
		close(j.abortCh)
	})
}

func (j *Job) Aborted() bool {
	return j.aborted.Load()
}

// Err returns the error the job ended with. It is nil until Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job is done or ctx ends.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Collect drains every batch of the job. When ctx ends first the job is
// aborted and the batches received so far are returned with ctx's error.
func (j *Job) Collect(ctx context.Context) ([]Result, error) {
	var out []Result
	for {
		select {
		case r, ok := <-j.results:
			if !ok {
				<-j.done
				return out, j.err
			}
			out = append(out, r)
		case <-ctx.Done():
			j.Abort()
			return out, ctx.Err()
		}
	}
}

// emit hands r to the consumer. It reports false once the job is aborted.
func (j *Job) emit(r Result) bool {
	if j.aborted.Load() {
		return false
	}
	select {
	case j.results <- r:
		return true
	case <-j.abortCh:
		return false
	}
}

func (j *Job) finish(err error) {
	if j.aborted.Load() {
		err = ErrAborted
	}
	j.err = err
	close(j.results)
	close(j.done)
}

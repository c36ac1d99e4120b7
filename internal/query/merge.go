package query

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Merge combines jobs into one. The merged job delivers the batches of every
// job as they arrive and is done once all of them are; its error is the first
// error of any job. Aborting the merged job, or ending ctx, aborts them all.
func Merge(ctx context.Context, t Type, jobs ...*Job) *Job {
	merged := newJob(t)
	stop := context.AfterFunc(ctx, merged.Abort)

	go func() {
		select {
		case <-merged.abortCh:
			for _, j := range jobs {
				j.Abort()
			}
		case <-merged.done:
		}
	}()

	go func() {
		defer stop()

		var g errgroup.Group
		for _, j := range jobs {
			g.Go(func() error {
				for r := range j.Results() {
					if !merged.emit(r) {
						j.Abort()
					}
				}
				<-j.Done()
				return j.Err()
			})
		}
		merged.finish(g.Wait())
	}()
	return merged
}

// Gather runs jobs like Merge but holds their batches back until every job
// is done, then delivers the batches combine makes of them. The batches are
// handed to combine in arrival order. When a job fails nothing is delivered
// and the gathered job ends with that error.
func Gather(ctx context.Context, t Type, combine func([]Result) []Result, jobs ...*Job) *Job {
	inner := Merge(ctx, t, jobs...)
	gathered := newJob(t)

	go func() {
		select {
		case <-gathered.abortCh:
			inner.Abort()
		case <-gathered.done:
		}
	}()

	go func() {
		var batches []Result
		for r := range inner.Results() {
			batches = append(batches, r)
		}
		<-inner.Done()
		if err := inner.Err(); err != nil {
			gathered.finish(err)
			return
		}
		for _, r := range combine(batches) {
			if !gathered.emit(r) {
				break
			}
		}
		gathered.finish(nil)
	}()
	return gathered
}

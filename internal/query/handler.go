package query

import "context"

// Handler receives the batches of a job through per-kind callbacks. Nil
// callbacks are skipped. OnDone is called exactly once, after every batch.
type Handler struct {
	OnTracks    func(Tracks)
	OnArtists   func(Artists)
	OnAlbums    func(Albums)
	OnGenres    func(Genres)
	OnComposers func(Composers)
	OnYears     func(Years)
	OnData      func(DataList)
	OnCustom    func(Rows)
	OnDone      func(err error)
}

// Dispatch feeds the batches of job to h on the calling goroutine until the
// job is done. When ctx ends first the job is aborted and no further batch
// reaches h.
func Dispatch(ctx context.Context, job *Job, h Handler) error {
	err := dispatch(ctx, job, h)
	if h.OnDone != nil {
		h.OnDone(err)
	}
	return err
}

func dispatch(ctx context.Context, job *Job, h Handler) error {
	for {
		select {
		case r, ok := <-job.Results():
			if !ok {
				<-job.Done()
				return job.Err()
			}
			if job.Aborted() {
				continue
			}
			h.deliver(r)
		case <-ctx.Done():
			job.Abort()
			<-job.Done()
			return ctx.Err()
		}
	}
}

func (h Handler) deliver(r Result) {
	switch v := r.(type) {
	case Tracks:
		if h.OnTracks != nil {
			h.OnTracks(v)
		}
	case Artists:
		if h.OnArtists != nil {
			h.OnArtists(v)
		}
	case Albums:
		if h.OnAlbums != nil {
			h.OnAlbums(v)
		}
	case Genres:
		if h.OnGenres != nil {
			h.OnGenres(v)
		}
	case Composers:
		if h.OnComposers != nil {
			h.OnComposers(v)
		}
	case Years:
		if h.OnYears != nil {
			h.OnYears(v)
		}
	case DataList:
		if h.OnData != nil {
			h.OnData(v)
		}
	case Rows:
		if h.OnCustom != nil {
			h.OnCustom(v)
		}
	}
}

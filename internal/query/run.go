package query

import (
	"context"
	"fmt"
	"time"

	"github.com/llehouerou/shoal/internal/meta"
)

// task is a compiled query ready to execute.
type task struct {
	env     *Env
	sql     string
	typ     Type
	asData  bool
	columns []string
}

// Run compiles the query if needed and starts it. It refuses queries without
// type and blocking queries that already ran.
//
// Asynchronous runs are queued on the environment's pool; canceling ctx
// aborts the job. Blocking runs execute on the calling goroutine and return
// a finished job; their results are read through Tracks, Albums and the
// other accessors.
func (m *QueryMaker) Run(ctx context.Context) (*Job, error) {
	if m.typ == TypeNone {
		return nil, ErrNoQueryType
	}
	if m.blocking && m.used {
		return nil, ErrAlreadyUsed
	}
	if m.job != nil && !m.job.Finished() {
		return nil, ErrRunning
	}
	sql, err := m.Query()
	if err != nil {
		return nil, err
	}

	m.used = true
	job := newJob(m.typ)
	t := &task{
		env:     m.env,
		sql:     sql,
		typ:     m.typ,
		asData:  m.asData,
		columns: append([]string(nil), m.columns...),
	}

	if !m.included {
		job.finish(nil)
		m.job = job
		return job, nil
	}

	if m.blocking {
		m.blockingResults = blockingResults{}
		job.finish(t.execute(ctx, job, m.blockingResults.add))
		m.job = job
		return job, nil
	}

	stop := context.AfterFunc(ctx, job.Abort)
	runCtx := context.WithoutCancel(ctx)
	fn := func() {
		defer stop()
		job.run(runCtx, t)
	}
	if m.env.Pool != nil {
		if err := m.env.Pool.Submit(ctx, fn); err != nil {
			stop()
			return nil, err
		}
	} else {
		go fn()
	}
	m.job = job
	return job, nil
}

// Abort aborts the running job, if any.
func (m *QueryMaker) Abort() {
	if m.job != nil {
		m.job.Abort()
	}
}

// run executes t on a pool worker. A job aborted while queued finishes
// without touching the storage.
func (j *Job) run(ctx context.Context, t *task) {
	if j.Aborted() {
		t.env.Logger.Debug().Str("job", j.id).Msg("query aborted before start")
		j.finish(ErrAborted)
		return
	}
	j.finish(t.execute(ctx, j, j.emit))
}

// execute runs the query and hands batches of materialized results to emit.
// A failed or empty query still emits one empty batch of its kind.
func (t *task) execute(ctx context.Context, job *Job, emit func(Result) bool) error {
	log := t.env.Logger.With().
		Str("job", job.id).
		Str("collection", t.env.CollectionID).
		Str("type", t.typ.String()).
		Logger()
	start := time.Now()

	rows, err := t.env.Storage.Query(ctx, t.sql)
	if err != nil {
		log.Warn().Err(err).Str("sql", t.sql).Msg("query failed")
		emit(emptyResult(t.typ, t.asData, t.env.CollectionID, t.columns))
		return fmt.Errorf("run %s query: %w", t.typ, err)
	}

	if len(rows) == 0 {
		emit(emptyResult(t.typ, t.asData, t.env.CollectionID, t.columns))
	}
	size := t.env.batchSize()
	for i := 0; i < len(rows); i += size {
		batch := rows[i:min(i+size, len(rows))]
		if !emit(t.materialize(batch)) {
			log.Debug().Int("rows", len(rows)).Msg("query aborted")
			return ErrAborted
		}
	}

	log.Debug().
		Int("rows", len(rows)).
		Dur("took", time.Since(start)).
		Msg("query finished")
	return nil
}

// blockingResults accumulates the batches of a blocking run.
type blockingResults struct {
	tracks    []*meta.Track
	artists   []*meta.Artist
	albums    []*meta.Album
	genres    []*meta.Genre
	composers []*meta.Composer
	years     []*meta.Year
	data      []meta.Data
	custom    [][]string
}

func (b *blockingResults) add(r Result) bool {
	switch v := r.(type) {
	case Tracks:
		b.tracks = append(b.tracks, v.Items...)
	case Artists:
		b.artists = append(b.artists, v.Items...)
	case Albums:
		b.albums = append(b.albums, v.Items...)
	case Genres:
		b.genres = append(b.genres, v.Items...)
	case Composers:
		b.composers = append(b.composers, v.Items...)
	case Years:
		b.years = append(b.years, v.Items...)
	case DataList:
		b.data = append(b.data, v.Items...)
	case Rows:
		b.custom = append(b.custom, v.Values...)
	}
	return true
}

func (m *QueryMaker) Tracks() []*meta.Track       { return m.blockingResults.tracks }
func (m *QueryMaker) Artists() []*meta.Artist     { return m.blockingResults.artists }
func (m *QueryMaker) Albums() []*meta.Album       { return m.blockingResults.albums }
func (m *QueryMaker) Genres() []*meta.Genre       { return m.blockingResults.genres }
func (m *QueryMaker) Composers() []*meta.Composer { return m.blockingResults.composers }
func (m *QueryMaker) Years() []*meta.Year         { return m.blockingResults.years }
func (m *QueryMaker) Data() []meta.Data           { return m.blockingResults.data }
func (m *QueryMaker) CustomData() [][]string      { return m.blockingResults.custom }

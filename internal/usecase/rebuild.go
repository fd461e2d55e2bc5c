package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SRZones/internal/domain/models"
	applogger "SRZones/pkg/logger"
	"SRZones/pkg/queue"
	"SRZones/pkg/util"
)

// RebuildMessageType is the queue message type of a single pair rebuild.
const RebuildMessageType = "rebuild_pair"

// RebuildMessage asks a worker to rebuild one pair over From..To.
type RebuildMessage struct {
	Pair string `json:"pair"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Rebuilder refreshes the calendars of a fixed set of pairs over a
// trailing window and drops their cached copies. With a queue attached the
// pairs are handed to queue workers instead of being built inline.
type Rebuilder struct {
	job         *BuildJob
	query       *ZonesQuery
	pairs       []models.Pair
	historyDays int
	queue       queue.Enqueuer
	now         func() time.Time
	l           *applogger.Logger
}

func NewRebuilder(job *BuildJob, query *ZonesQuery, pairs []string, historyDays int, l *applogger.Logger) (*Rebuilder, error) {
	parsed := make([]models.Pair, 0, len(pairs))
	for _, s := range pairs {
		p, err := models.ParsePair(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Rebuilder{job: job, query: query, pairs: parsed, historyDays: historyDays, now: time.Now, l: l}, nil
}

// UseQueue makes RunOnce enqueue one RebuildMessage per pair.
func (r *Rebuilder) UseQueue(q queue.Enqueuer) {
	r.queue = q
}

func (r *Rebuilder) Pairs() []models.Pair {
	return append([]models.Pair(nil), r.pairs...)
}

// RunOnce rebuilds every pair from historyDays ago through today. A failing
// pair does not stop the others.
func (r *Rebuilder) RunOnce(ctx context.Context) error {
	to := models.DayOf(r.now())
	from := to.AddDate(0, 0, -r.historyDays)
	var errs []error
	for _, pair := range r.pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		if r.queue != nil {
			err = r.queue.Enqueue(ctx, RebuildMessageType, RebuildMessage{
				Pair: pair.String(),
				From: from.Format(models.DateLayout),
				To:   to.Format(models.DateLayout),
			})
		} else {
			err = r.rebuild(ctx, pair, from, to)
		}
		if err != nil {
			r.l.Error("scheduled rebuild failed", applogger.String("pair", pair.String()), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", pair, err))
		}
	}
	return errors.Join(errs...)
}

// Type implements queue.Job.
func (r *Rebuilder) Type() string {
	return RebuildMessageType
}

// Handle implements queue.Job by rebuilding the pair named in payload.
func (r *Rebuilder) Handle(ctx context.Context, payload json.RawMessage) error {
	msg, err := queue.DecodePayload[RebuildMessage](payload)
	if err != nil {
		return err
	}
	pair, err := models.ParsePair(msg.Pair)
	if err != nil {
		return err
	}
	from, err := util.ParseDate(msg.From)
	if err != nil {
		return err
	}
	to, err := util.ParseDate(msg.To)
	if err != nil {
		return err
	}
	return r.rebuild(ctx, pair, from, to)
}

func (r *Rebuilder) rebuild(ctx context.Context, pair models.Pair, from, to time.Time) error {
	res, err := r.job.Run(ctx, BuildRequest{Pair: pair, From: from, To: to})
	if err != nil {
		return err
	}
	if r.query != nil {
		if err := r.query.Invalidate(ctx, pair); err != nil {
			r.l.Warn("cache invalidation failed", applogger.String("pair", pair.String()), applogger.Error(err))
		}
	}
	r.l.Info("rebuild done",
		applogger.String("pair", pair.String()),
		applogger.Int("days_built", res.Stats.DaysBuilt),
		applogger.Duration("duration_ms", res.Duration),
	)
	return nil
}

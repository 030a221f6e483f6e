// Package cron runs scheduled tool calls.
//
// Jobs persist as JSON:
//
//	{ "version": 1, "jobs": [ { "id":"…", "name":"…", "enabled":true,
//	    "schedule":{"kind":"every","everyMs":…},
//	    "payload":{"kind":"tool_call","tool":"solana_price","args":{…}},
//	    "state":{"nextRunAtMs":…,"lastRunAtMs":…,"lastStatus":"ok","lastResult":"…"},
//	    "createdAtMs":…, "updatedAtMs":…, "deleteAfterRun":false } ] }
package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	robfigcron "github.com/robfig/cron/v3"
	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/tools"
)

// MaxResultLen caps the tool output stored in a job's state.
const MaxResultLen = 2000

// PayloadToolCall is the only payload kind.
const PayloadToolCall = "tool_call"

// --------------------------------------------------------------------------
// Data types
// --------------------------------------------------------------------------

type Schedule struct {
	Kind    string  `json:"kind"`              // "every" | "cron" | "at"
	AtMs    *int64  `json:"atMs,omitempty"`    // one-time
	EveryMs *int64  `json:"everyMs,omitempty"` // interval
	Expr    *string `json:"expr,omitempty"`    // 5-field cron expression
	TZ      *string `json:"tz,omitempty"`      // IANA timezone
}

type Payload struct {
	Kind string         `json:"kind"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type JobState struct {
	NextRunAtMs *int64  `json:"nextRunAtMs,omitempty"`
	LastRunAtMs *int64  `json:"lastRunAtMs,omitempty"`
	LastStatus  *string `json:"lastStatus,omitempty"`
	LastError   *string `json:"lastError,omitempty"`
	LastResult  *string `json:"lastResult,omitempty"`
}

type Job struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Enabled        bool     `json:"enabled"`
	Schedule       Schedule `json:"schedule"`
	Payload        Payload  `json:"payload"`
	State          JobState `json:"state"`
	CreatedAtMs    int64    `json:"createdAtMs"`
	UpdatedAtMs    int64    `json:"updatedAtMs"`
	DeleteAfterRun bool     `json:"deleteAfterRun"`
}

// JobSpec describes a job to add.
type JobSpec struct {
	Name           string
	Tool           string
	Args           map[string]any
	Kind           string
	EveryMs        int64
	Expr           string
	TZ             string
	AtMs           int64
	DeleteAfterRun bool
}

type store struct {
	Version int   `json:"version"`
	Jobs    []Job `json:"jobs"`
}

// Runner executes a tool by name; *tools.Registry satisfies it.
type Runner interface {
	Execute(ctx context.Context, name string, params map[string]any) (string, error)
}

// --------------------------------------------------------------------------
// Service
// --------------------------------------------------------------------------

// Service owns the job store and fires due jobs through its Runner.
type Service struct {
	storePath string
	runner    Runner
	now       func() time.Time

	mu     sync.Mutex
	store  store
	loaded bool
	runCtx context.Context // set while Start is running

	timers    map[string]*time.Timer
	robfig    *robfigcron.Cron
	robfigIDs map[string]robfigcron.EntryID
}

// NewService creates a Service persisting to storePath.
func NewService(storePath string, runner Runner) *Service {
	return &Service{
		storePath: storePath,
		runner:    runner,
		now:       time.Now,
		timers:    make(map[string]*time.Timer),
		robfig:    robfigcron.New(),
		robfigIDs: make(map[string]robfigcron.EntryID),
	}
}

// Start loads jobs, recomputes next-run times and arms every enabled job.
// Blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if err := s.loadLocked(); err != nil {
		slog.Warn("cron: load failed, starting empty", "err", err)
	}
	s.runCtx = ctx
	s.recomputeNextRunsLocked()
	s.saveLocked()
	for _, j := range s.store.Jobs {
		if j.Enabled {
			s.armJobLocked(j)
		}
	}
	n := len(s.store.Jobs)
	s.mu.Unlock()

	s.robfig.Start()
	slog.Info("cron: started", "jobs", n)

	<-ctx.Done()

	<-s.robfig.Stop().Done()
	s.mu.Lock()
	for id := range s.timers {
		s.cancelTimerLocked(id)
	}
	s.runCtx = nil
	s.mu.Unlock()
	return ctx.Err()
}

// AddJob validates spec, stores the job and arms it when the service is
// running.
func (s *Service) AddJob(spec JobSpec) (Job, error) {
	if strings.TrimSpace(spec.Tool) == "" {
		return Job{}, errors.New("tool is required")
	}
	sched, err := newSchedule(spec)
	if err != nil {
		return Job{}, err
	}

	now := s.nowMs()
	name := spec.Name
	if name == "" {
		name = spec.Tool
	}
	job := Job{
		ID:             shortID(),
		Name:           name,
		Enabled:        true,
		Schedule:       sched,
		Payload:        Payload{Kind: PayloadToolCall, Tool: spec.Tool, Args: spec.Args},
		State:          JobState{NextRunAtMs: computeNextRun(sched, now)},
		CreatedAtMs:    now,
		UpdatedAtMs:    now,
		DeleteAfterRun: spec.DeleteAfterRun,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return Job{}, err
	}
	s.store.Jobs = append(s.store.Jobs, job)
	s.saveLocked()
	if s.runCtx != nil {
		s.armJobLocked(job)
	}

	slog.Info("cron: added job", "name", name, "id", job.ID, "tool", spec.Tool, "kind", sched.Kind)
	return job, nil
}

func newSchedule(spec JobSpec) (Schedule, error) {
	sched := Schedule{Kind: spec.Kind}
	switch spec.Kind {
	case "every":
		if spec.EveryMs <= 0 {
			return sched, errors.New("every schedule needs a positive interval")
		}
		v := spec.EveryMs
		sched.EveryMs = &v
	case "cron":
		if _, err := parser.Parse(spec.Expr); err != nil {
			return sched, fmt.Errorf("invalid cron expression %q: %w", spec.Expr, err)
		}
		if spec.TZ != "" {
			if _, err := time.LoadLocation(spec.TZ); err != nil {
				return sched, fmt.Errorf("unknown timezone %q: %w", spec.TZ, err)
			}
			tz := spec.TZ
			sched.TZ = &tz
		}
		expr := spec.Expr
		sched.Expr = &expr
	case "at":
		v := spec.AtMs
		sched.AtMs = &v
	default:
		return sched, fmt.Errorf("unknown schedule kind %q", spec.Kind)
	}
	return sched, nil
}

// ListJobs returns jobs ordered by next run; disabled jobs only when asked.
func (s *Service) ListJobs(includeDisabled bool) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		slog.Warn("cron: load failed", "err", err)
	}
	var jobs []Job
	for _, j := range s.store.Jobs {
		if includeDisabled || j.Enabled {
			jobs = append(jobs, j)
		}
	}
	sort.SliceStable(jobs, func(i, k int) bool {
		return nextOrMax(jobs[i]) < nextOrMax(jobs[k])
	})
	return jobs
}

func nextOrMax(j Job) int64 {
	if j.State.NextRunAtMs == nil {
		return int64(^uint64(0) >> 1)
	}
	return *j.State.NextRunAtMs
}

// RemoveJob deletes a job and reports whether it existed.
func (s *Service) RemoveJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.loadLocked()
	if !s.removeLocked(id) {
		return false
	}
	s.cancelTimerLocked(id)
	s.saveLocked()
	return true
}

func (s *Service) removeLocked(id string) bool {
	before := len(s.store.Jobs)
	filtered := s.store.Jobs[:0]
	for _, j := range s.store.Jobs {
		if j.ID != id {
			filtered = append(filtered, j)
		}
	}
	s.store.Jobs = filtered
	return len(filtered) < before
}

// EnableJob enables or disables a job.
func (s *Service) EnableJob(id string, enabled bool) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.loadLocked()
	j := s.findLocked(id)
	if j == nil {
		return Job{}, false
	}
	j.Enabled = enabled
	j.UpdatedAtMs = s.nowMs()
	if enabled {
		j.State.NextRunAtMs = computeNextRun(j.Schedule, s.nowMs())
		if s.runCtx != nil {
			s.armJobLocked(*j)
		}
	} else {
		j.State.NextRunAtMs = nil
		s.cancelTimerLocked(id)
	}
	out := *j
	s.saveLocked()
	return out, true
}

// RunJob executes a job now. Disabled jobs run only with force. It returns
// the job as stored after the run.
func (s *Service) RunJob(ctx context.Context, id string, force bool) (Job, bool) {
	s.mu.Lock()
	_ = s.loadLocked()
	j := s.findLocked(id)
	if j == nil || (!force && !j.Enabled) {
		s.mu.Unlock()
		return Job{}, false
	}
	job := *j
	s.mu.Unlock()

	return s.executeJob(ctx, job), true
}

func (s *Service) findLocked(id string) *Job {
	for i := range s.store.Jobs {
		if s.store.Jobs[i].ID == id {
			return &s.store.Jobs[i]
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Scheduling
// --------------------------------------------------------------------------

var parser = robfigcron.NewParser(
	robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow,
)

func (s *Service) recomputeNextRunsLocked() {
	now := s.nowMs()
	for i := range s.store.Jobs {
		if s.store.Jobs[i].Enabled {
			s.store.Jobs[i].State.NextRunAtMs = computeNextRun(s.store.Jobs[i].Schedule, now)
		}
	}
}

func (s *Service) armJobLocked(job Job) {
	s.cancelTimerLocked(job.ID)
	ctx := s.runCtx

	switch job.Schedule.Kind {
	case "every":
		if job.Schedule.EveryMs == nil || *job.Schedule.EveryMs <= 0 {
			return
		}
		d := time.Duration(*job.Schedule.EveryMs) * time.Millisecond
		s.timers[job.ID] = time.AfterFunc(d, func() {
			s.executeJob(ctx, job)
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.runCtx == nil {
				return
			}
			if j := s.findLocked(job.ID); j != nil && j.Enabled {
				s.armJobLocked(*j)
			}
		})

	case "at":
		if job.Schedule.AtMs == nil {
			return
		}
		delay := time.Until(time.UnixMilli(*job.Schedule.AtMs))
		if delay < 0 {
			return
		}
		s.timers[job.ID] = time.AfterFunc(delay, func() { s.executeJob(ctx, job) })

	case "cron":
		if job.Schedule.Expr == nil {
			return
		}
		sched, err := parser.Parse(*job.Schedule.Expr)
		if err != nil {
			slog.Warn("cron: invalid cron expression", "job", job.ID, "expr", *job.Schedule.Expr, "err", err)
			return
		}
		id := job.ID
		s.robfigIDs[id] = s.robfig.Schedule(
			withLocation(sched, location(job.Schedule.TZ)),
			robfigcron.FuncJob(func() {
				s.mu.Lock()
				j := s.findLocked(id)
				var cur Job
				if j != nil {
					cur = *j
				}
				s.mu.Unlock()
				if j != nil {
					s.executeJob(ctx, cur)
				}
			}),
		)
	}
}

func (s *Service) cancelTimerLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	if eid, ok := s.robfigIDs[id]; ok {
		s.robfig.Remove(eid)
		delete(s.robfigIDs, id)
	}
}

// executeJob runs the tool call and records its outcome.
func (s *Service) executeJob(ctx context.Context, job Job) Job {
	if ctx == nil {
		ctx = context.Background()
	}
	startMs := s.nowMs()
	slog.Info("cron: executing job", "name", job.Name, "id", job.ID, "tool", job.Payload.Tool)

	status, out, runErr := s.call(ctx, job)
	if runErr != nil {
		slog.Error("cron: job failed", "name", job.Name, "err", runErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.findLocked(job.ID)
	if j == nil {
		return job
	}
	now := s.nowMs()
	j.State.LastRunAtMs = &startMs
	j.State.LastStatus = &status
	j.State.LastError = nil
	if runErr != nil {
		e := runErr.Error()
		j.State.LastError = &e
	}
	j.State.LastResult = nil
	if out != "" {
		r := truncate(out, MaxResultLen)
		j.State.LastResult = &r
	}
	j.UpdatedAtMs = now

	if j.Schedule.Kind == "at" {
		if j.DeleteAfterRun {
			done := *j
			s.removeLocked(job.ID)
			s.saveLocked()
			return done
		}
		j.Enabled = false
		j.State.NextRunAtMs = nil
	} else if j.Enabled {
		j.State.NextRunAtMs = computeNextRun(j.Schedule, now)
	}
	done := *j
	s.saveLocked()
	return done
}

func (s *Service) call(ctx context.Context, job Job) (status, out string, err error) {
	if s.runner == nil {
		return "error", "", errors.New("no tool runner configured")
	}
	if job.Payload.Kind != "" && job.Payload.Kind != PayloadToolCall {
		return "error", "", fmt.Errorf("unsupported payload kind %q", job.Payload.Kind)
	}
	ctx = tools.WithCall(ctx, tools.CallContext{Source: "cron", JobID: job.ID})
	out, err = s.runner.Execute(ctx, job.Payload.Tool, job.Payload.Args)
	if err != nil {
		return "error", out, err
	}
	return resultStatus(out), out, nil
}

// resultStatus reads a tool's JSON result: "error" for status:"error" or
// success:false, otherwise "ok".
func resultStatus(out string) string {
	if !gjson.Valid(out) {
		return "ok"
	}
	if gjson.Get(out, "status").String() == "error" {
		return "error"
	}
	if v := gjson.Get(out, "success"); v.Exists() && !v.Bool() {
		return "error"
	}
	return "ok"
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

func (s *Service) loadLocked() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.storePath)
	if os.IsNotExist(err) {
		s.store = store{Version: 1}
		s.loaded = true
		return nil
	}
	if err != nil {
		return err
	}
	var st store
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode %s: %w", s.storePath, err)
	}
	if st.Version == 0 {
		st.Version = 1
	}
	s.store = st
	s.loaded = true
	return nil
}

func (s *Service) saveLocked() {
	if err := os.MkdirAll(filepath.Dir(s.storePath), 0o755); err != nil {
		slog.Warn("cron: mkdir failed", "err", err)
		return
	}
	data, err := json.MarshalIndent(s.store, "", "  ")
	if err != nil {
		slog.Warn("cron: marshal failed", "err", err)
		return
	}
	tmp := s.storePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		slog.Warn("cron: write failed", "err", err)
		return
	}
	if err := os.Rename(tmp, s.storePath); err != nil {
		slog.Warn("cron: rename failed", "err", err)
	}
}

// --------------------------------------------------------------------------
// Utility
// --------------------------------------------------------------------------

func (s *Service) nowMs() int64 { return s.now().UnixMilli() }

func shortID() string { return uuid.NewString()[:8] }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func location(tz *string) *time.Location {
	if tz != nil && *tz != "" {
		if l, err := time.LoadLocation(*tz); err == nil {
			return l
		}
	}
	return time.Local
}

func computeNextRun(sched Schedule, nowMs int64) *int64 {
	switch sched.Kind {
	case "at":
		if sched.AtMs != nil && *sched.AtMs > nowMs {
			v := *sched.AtMs
			return &v
		}
	case "every":
		if sched.EveryMs != nil && *sched.EveryMs > 0 {
			v := nowMs + *sched.EveryMs
			return &v
		}
	case "cron":
		if sched.Expr == nil {
			return nil
		}
		parsed, err := parser.Parse(*sched.Expr)
		if err != nil {
			return nil
		}
		v := parsed.Next(time.UnixMilli(nowMs).In(location(sched.TZ))).UnixMilli()
		return &v
	}
	return nil
}

// locSchedule evaluates a schedule in a fixed location.
type locSchedule struct {
	inner robfigcron.Schedule
	loc   *time.Location
}

func (l locSchedule) Next(t time.Time) time.Time {
	return l.inner.Next(t.In(l.loc))
}

func withLocation(s robfigcron.Schedule, loc *time.Location) robfigcron.Schedule {
	return locSchedule{inner: s, loc: loc}
}
